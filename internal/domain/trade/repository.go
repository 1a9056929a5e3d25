package trade

import (
	"context"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
)

// OrderFilter narrows order listings
type OrderFilter struct {
	shared.Filter
	UserID *uuid.UUID
	Status OrderStatus
}

// CartRepository persists carts of the tenant carried by ctx
type CartRepository interface {
	// FindByUser returns the user's cart, or shared.ErrNotFound
	FindByUser(ctx context.Context, userID uuid.UUID) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
}

// OrderRepository persists orders of the tenant carried by ctx
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	Update(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]*Order, int64, error)
}
