// Package plugin defines the store extension model: a catalogue of plugin
// definitions backed by compiled-in providers, and the per-store instances
// that install them.
package plugin

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category groups plugins by the integration point they extend
type Category string

const (
	CategoryPayment   Category = "payment"
	CategoryAuth      Category = "auth"
	CategoryMarketing Category = "marketing"
)

// ConfigField describes one configuration key a plugin accepts
type ConfigField struct {
	Key         string `yaml:"key" json:"key"`
	Label       string `yaml:"label" json:"label"`
	Required    bool   `yaml:"required" json:"required"`
	Secret      bool   `yaml:"secret" json:"secret"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// Definition is a catalogue entry
type Definition struct {
	Slug        string        `yaml:"slug" json:"slug"`
	Name        string        `yaml:"name" json:"name"`
	Category    Category      `yaml:"category" json:"category"`
	Version     string        `yaml:"version" json:"version"`
	Description string        `yaml:"description" json:"description"`
	Commercial  bool          `yaml:"commercial" json:"commercial"`
	Config      []ConfigField `yaml:"config" json:"config"`
}

// RequiredKeys returns the config keys that must be present
func (d Definition) RequiredKeys() []string {
	keys := make([]string, 0, len(d.Config))
	for _, f := range d.Config {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// Provider is the runtime behaviour behind a definition
type Provider interface {
	Slug() string
}

// ChargeRequest asks a payment provider to collect money for an order
type ChargeRequest struct {
	TenantID    uuid.UUID
	OrderID     uuid.UUID
	OrderNumber string
	Amount      decimal.Decimal
	Currency    string
	Config      map[string]string
}

// ChargeResult is the outcome of a successful charge
type ChargeResult struct {
	Reference   string
	RedirectURL string
	// Settled is false when payment completes asynchronously (webhook)
	Settled bool
}

// PaymentProvider collects payments
type PaymentProvider interface {
	Provider
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// Message is a customer notification
type Message struct {
	TenantID uuid.UUID
	To       string
	Subject  string
	Body     string
}

// NotificationProvider delivers customer notifications
type NotificationProvider interface {
	Provider
	Notify(ctx context.Context, config map[string]string, msg Message) error
}

// LoginProvider builds the redirect for third-party sign-in
type LoginProvider interface {
	Provider
	AuthorizeURL(config map[string]string, state string) (string, error)
}
