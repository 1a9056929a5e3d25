package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
)

// ProductFilter narrows product listings
type ProductFilter struct {
	shared.Filter
	Category string
	Status   ProductStatus
}

// ProductRepository persists products of the tenant carried by ctx
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	Update(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]*Product, error)
	FindAll(ctx context.Context, filter ProductFilter) ([]*Product, int64, error)
	// DecrementStock atomically takes qty units, returning
	// shared.ErrInsufficientStock when fewer are available
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) error
	IncrementStock(ctx context.Context, id uuid.UUID, qty int) error
}
