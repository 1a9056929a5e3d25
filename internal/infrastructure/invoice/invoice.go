// Package invoice renders order invoices as HTML and, through headless
// Chrome, as PDF.
package invoice

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/jiffoo/mall/internal/domain/trade"
	"github.com/shopspring/decimal"
)

//go:embed templates/invoice.html
var templateFS embed.FS

// Data is everything the invoice template shows
type Data struct {
	StoreName  string
	StoreEmail string
	Locale     string
	Order      *trade.Order
}

// Template renders invoice HTML
type Template struct {
	tmpl *template.Template
}

// NewTemplate parses the embedded invoice template
func NewTemplate() (*Template, error) {
	tmpl, err := template.New("invoice.html").Funcs(funcMap()).ParseFS(templateFS, "templates/invoice.html")
	if err != nil {
		return nil, fmt.Errorf("parse invoice template: %w", err)
	}
	return &Template{tmpl: tmpl}, nil
}

// Render executes the template. HTML escaping applies to every field.
func (t *Template) Render(_ context.Context, data Data) ([]byte, error) {
	if data.Order == nil {
		return nil, fmt.Errorf("render invoice: order is required")
	}
	if data.Locale == "" {
		data.Locale = "en"
	}
	var buf bytes.Buffer
	if err := t.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", data.Order.OrderNumber, err)
	}
	return buf.Bytes(), nil
}

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"CNY": "¥",
	"JPY": "¥",
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"money": formatMoney,
		"date": func(t any) string {
			switch v := t.(type) {
			case time.Time:
				return v.Format("2006-01-02")
			case *time.Time:
				if v == nil {
					return ""
				}
				return v.Format("2006-01-02")
			}
			return ""
		},
	}
}

// formatMoney prints amount with the currency symbol, or the ISO code when
// there is no symbol
func formatMoney(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(currency)
	places := int32(2)
	if currency == "JPY" {
		places = 0
	}
	value := amount.StringFixed(places)
	if sym, ok := currencySymbols[currency]; ok {
		return sym + value
	}
	return value + " " + currency
}
