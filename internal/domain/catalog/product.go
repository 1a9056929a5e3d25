package catalog

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the visibility of a product in the storefront
type ProductStatus string

const (
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusActive   ProductStatus = "active"
	ProductStatusArchived ProductStatus = "archived"
)

const maxImages = 10

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Product is a sellable item in a store
type Product struct {
	shared.TenantEntity
	Name        string
	Slug        string
	Description string
	Price       decimal.Decimal
	Stock       int
	Category    string
	Images      []string
	Status      ProductStatus
}

// NewProduct creates a draft product
func NewProduct(tenantID uuid.UUID, name string, price decimal.Decimal, stock int) (*Product, error) {
	p := &Product{
		TenantEntity: shared.NewTenantEntity(tenantID),
		Status:       ProductStatusDraft,
		Images:       make([]string, 0),
	}
	if err := p.Rename(name); err != nil {
		return nil, err
	}
	if err := p.SetPrice(price); err != nil {
		return nil, err
	}
	if err := p.SetStock(stock); err != nil {
		return nil, err
	}
	return p, nil
}

// Rename sets the name and regenerates the slug
func (p *Product) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	p.Name = name
	p.Slug = Slugify(name)
	p.Touch()
	return nil
}

// SetPrice sets the unit price, rounded to cents
func (p *Product) SetPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
	}
	p.Price = price.Round(2)
	p.Touch()
	return nil
}

// SetStock sets the on-hand quantity
func (p *Product) SetStock(stock int) error {
	if stock < 0 {
		return shared.NewDomainError("INVALID_STOCK", "Stock cannot be negative")
	}
	p.Stock = stock
	p.Touch()
	return nil
}

// SetDetails updates the descriptive fields
func (p *Product) SetDetails(description, category string) {
	p.Description = strings.TrimSpace(description)
	p.Category = strings.ToLower(strings.TrimSpace(category))
	p.Touch()
}

// SetStatus moves the product between draft, active and archived
func (p *Product) SetStatus(status ProductStatus) error {
	switch status {
	case ProductStatusDraft, ProductStatusActive, ProductStatusArchived:
	default:
		return shared.NewDomainError("INVALID_STATUS", "Unknown product status")
	}
	p.Status = status
	p.Touch()
	return nil
}

// AddImage appends an image URL
func (p *Product) AddImage(url string) error {
	if url == "" {
		return shared.NewDomainError("INVALID_IMAGE", "Image URL cannot be empty")
	}
	if len(p.Images) >= maxImages {
		return shared.NewDomainError("TOO_MANY_IMAGES", "A product can have at most 10 images")
	}
	p.Images = append(p.Images, url)
	p.Touch()
	return nil
}

// Purchasable reports whether the product can be added to a cart
func (p *Product) Purchasable() bool {
	return p.Status == ProductStatusActive
}

// Reserve takes qty units out of stock
func (p *Product) Reserve(qty int) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if p.Stock < qty {
		return shared.ErrInsufficientStock
	}
	p.Stock -= qty
	p.Touch()
	return nil
}

// Release returns qty units to stock
func (p *Product) Release(qty int) {
	if qty <= 0 {
		return
	}
	p.Stock += qty
	p.Touch()
}

// Slugify turns a product name into a URL-safe slug
func Slugify(name string) string {
	s := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}
