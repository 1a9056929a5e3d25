package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a new product
type CreateProductRequest struct {
	Name        string          `json:"name" binding:"required,min=1,max=200"`
	Description string          `json:"description" binding:"max=5000"`
	Price       decimal.Decimal `json:"price" swaggertype:"string" example:"19.99"`
	Stock       int             `json:"stock" binding:"min=0"`
	Category    string          `json:"category" binding:"max=100"`
	Images      []string        `json:"images" binding:"max=10,dive,url"`
	Status      string          `json:"status" binding:"omitempty,oneof=draft active archived"`
}

// UpdateProductRequest represents a request to update a product. Nil
// fields are left untouched.
type UpdateProductRequest struct {
	Name        *string          `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string          `json:"description" binding:"omitempty,max=5000"`
	Price       *decimal.Decimal `json:"price" swaggertype:"string" example:"19.99"`
	Stock       *int             `json:"stock" binding:"omitempty,min=0"`
	Category    *string          `json:"category" binding:"omitempty,max=100"`
	Status      *string          `json:"status" binding:"omitempty,oneof=draft active archived"`
}

// ProductListQuery holds the listing query parameters
type ProductListQuery struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search    string `form:"search" binding:"max=100"`
	Category  string `form:"category" binding:"max=100"`
	Status    string `form:"status" binding:"omitempty,oneof=draft active archived"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID          uuid.UUID       `json:"id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" swaggertype:"string"`
	Stock       int             `json:"stock"`
	Category    string          `json:"category,omitempty"`
	Images      []string        `json:"images"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return ProductResponse{
		ID:          p.ID,
		TenantID:    p.TenantID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.Category,
		Images:      images,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ToProductResponses converts a slice of domain Products
func ToProductResponses(products []*catalog.Product) []ProductResponse {
	responses := make([]ProductResponse, len(products))
	for i, p := range products {
		responses[i] = ToProductResponse(p)
	}
	return responses
}
