package trade

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/catalog"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/domain/trade"
	"github.com/jiffoo/mall/internal/infrastructure/logger"
	"go.uber.org/zap"
)

var errProductUnavailable = shared.NewDomainError("PRODUCT_UNAVAILABLE", "Product is not available for purchase")

// CartService manages the current user's cart
type CartService struct {
	cartRepo    trade.CartRepository
	productRepo catalog.ProductRepository
}

// NewCartService creates a new CartService
func NewCartService(cartRepo trade.CartRepository, productRepo catalog.ProductRepository) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

// Get returns the user's cart. A user who never added anything has an empty cart.
func (s *CartService) Get(ctx context.Context, userID uuid.UUID) (*CartResponse, error) {
	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			resp := ToCartResponse(nil)
			return &resp, nil
		}
		return nil, err
	}
	resp := ToCartResponse(cart)
	return &resp, nil
}

// AddItem adds units of an active product, snapshotting its current price
func (s *CartService) AddItem(ctx context.Context, tenantID, userID uuid.UUID, req AddCartItemRequest) (*CartResponse, error) {
	product, err := s.productRepo.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Purchasable() {
		return nil, errProductUnavailable
	}

	cart, err := s.load(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	if product.Stock < quantityOf(cart, product.ID)+req.Quantity {
		return nil, shared.ErrInsufficientStock
	}
	if err := cart.AddItem(product.ID, product.Name, product.Price, req.Quantity); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, err
	}

	logger.L(ctx).Debug("Cart item added",
		zap.String("product_id", product.ID.String()),
		zap.Int("quantity", req.Quantity),
	)
	resp := ToCartResponse(cart)
	return &resp, nil
}

// SetQuantity changes a line's quantity; zero removes the line
func (s *CartService) SetQuantity(ctx context.Context, userID, productID uuid.UUID, req UpdateCartItemRequest) (*CartResponse, error) {
	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Quantity > 0 {
		product, err := s.productRepo.FindByID(ctx, productID)
		if err != nil {
			return nil, err
		}
		if product.Stock < req.Quantity {
			return nil, shared.ErrInsufficientStock
		}
	}
	if err := cart.SetQuantity(productID, req.Quantity); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, err
	}
	resp := ToCartResponse(cart)
	return &resp, nil
}

// RemoveItem drops a product from the cart
func (s *CartService) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (*CartResponse, error) {
	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := cart.RemoveItem(productID); err != nil {
		return nil, err
	}
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		return nil, err
	}
	resp := ToCartResponse(cart)
	return &resp, nil
}

// Clear empties the cart. Clearing a cart that does not exist is a no-op.
func (s *CartService) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		return err
	}
	cart.Clear()
	return s.cartRepo.Save(ctx, cart)
}

func (s *CartService) load(ctx context.Context, tenantID, userID uuid.UUID) (*trade.Cart, error) {
	cart, err := s.cartRepo.FindByUser(ctx, userID)
	if errors.Is(err, shared.ErrNotFound) {
		return trade.NewCart(tenantID, userID), nil
	}
	return cart, err
}

func quantityOf(cart *trade.Cart, productID uuid.UUID) int {
	for _, item := range cart.Items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}
