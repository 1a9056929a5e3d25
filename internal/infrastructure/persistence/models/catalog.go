package models

import (
	"github.com/jiffoo/mall/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	TenantScopedModel
	Name        string                `gorm:"type:varchar(200);not null"`
	Slug        string                `gorm:"type:varchar(220);not null;index"`
	Description string                `gorm:"type:text"`
	Price       decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	Stock       int                   `gorm:"not null;default:0"`
	Category    string                `gorm:"type:varchar(100);index"`
	Images      []string              `gorm:"type:jsonb;serializer:json"`
	Status      catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'draft';index"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	images := m.Images
	if images == nil {
		images = []string{}
	}
	return &catalog.Product{
		TenantEntity: m.ToTenantEntity(),
		Name:         m.Name,
		Slug:         m.Slug,
		Description:  m.Description,
		Price:        m.Price,
		Stock:        m.Stock,
		Category:     m.Category,
		Images:       images,
		Status:       m.Status,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainTenantEntity(p.TenantEntity)
	m.Name = p.Name
	m.Slug = p.Slug
	m.Description = p.Description
	m.Price = p.Price
	m.Stock = p.Stock
	m.Category = p.Category
	m.Images = p.Images
	m.Status = p.Status
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
