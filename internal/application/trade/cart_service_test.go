package trade

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/catalog"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newActiveProduct(t *testing.T, tenantID uuid.UUID, name, price string, stock int) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(tenantID, name, decimal.RequireFromString(price), stock)
	require.NoError(t, err)
	require.NoError(t, p.SetStatus(catalog.ProductStatusActive))
	return p
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func TestCartService_GetMissingCartIsEmpty(t *testing.T) {
	carts := new(MockCartRepository)
	svc := NewCartService(carts, new(MockProductRepository))
	userID := uuid.New()
	carts.On("FindByUser", mock.Anything, userID).Return(nil, shared.ErrNotFound)

	resp, err := svc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
	assert.True(t, resp.Total.IsZero())
}

func TestCartService_AddItem(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()
	product := newActiveProduct(t, tenantID, "Mug", "12.50", 10)

	carts := new(MockCartRepository)
	products := new(MockProductRepository)
	svc := NewCartService(carts, products)

	products.On("FindByID", mock.Anything, product.ID).Return(product, nil)
	carts.On("FindByUser", mock.Anything, userID).Return(nil, shared.ErrNotFound).Once()
	var saved *trade.Cart
	carts.On("Save", mock.Anything, mock.AnythingOfType("*trade.Cart")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*trade.Cart) }).
		Return(nil)

	resp, err := svc.AddItem(context.Background(), tenantID, userID, AddCartItemRequest{ProductID: product.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "25", resp.Total.String())
	assert.Equal(t, tenantID, saved.TenantID)

	// adding again merges with the existing line
	carts.On("FindByUser", mock.Anything, userID).Return(saved, nil)
	resp, err = svc.AddItem(context.Background(), tenantID, userID, AddCartItemRequest{ProductID: product.ID, Quantity: 3})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 5, resp.Items[0].Quantity)
	assert.Equal(t, 5, resp.ItemCount)
}

func TestCartService_AddItemRejects(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()

	tests := []struct {
		name     string
		product  func() *catalog.Product
		existing int
		qty      int
		wantCode string
	}{
		{
			name: "draft product",
			product: func() *catalog.Product {
				p, _ := catalog.NewProduct(tenantID, "Draft", decimal.NewFromInt(1), 5)
				return p
			},
			qty:      1,
			wantCode: "PRODUCT_UNAVAILABLE",
		},
		{
			name:     "more than in stock",
			product:  func() *catalog.Product { return newActiveProduct(t, tenantID, "Mug", "1.00", 3) },
			qty:      4,
			wantCode: "INSUFFICIENT_STOCK",
		},
		{
			name:     "merged quantity exceeds stock",
			product:  func() *catalog.Product { return newActiveProduct(t, tenantID, "Mug", "1.00", 3) },
			existing: 2,
			qty:      2,
			wantCode: "INSUFFICIENT_STOCK",
		},
		{
			name:     "more than a line may hold",
			product:  func() *catalog.Product { return newActiveProduct(t, tenantID, "Pin", "1.00", 500) },
			existing: 98,
			qty:      2,
			wantCode: "INVALID_QUANTITY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			product := tt.product()
			carts := new(MockCartRepository)
			products := new(MockProductRepository)
			svc := NewCartService(carts, products)

			cart := trade.NewCart(tenantID, userID)
			if tt.existing > 0 {
				require.NoError(t, cart.AddItem(product.ID, product.Name, product.Price, tt.existing))
			}
			products.On("FindByID", mock.Anything, product.ID).Return(product, nil)
			carts.On("FindByUser", mock.Anything, userID).Return(cart, nil)

			_, err := svc.AddItem(context.Background(), tenantID, userID, AddCartItemRequest{ProductID: product.ID, Quantity: tt.qty})
			assert.Equal(t, tt.wantCode, domainCode(t, err))
			carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}
}

func TestCartService_SetQuantityAndRemove(t *testing.T) {
	tenantID, userID := uuid.New(), uuid.New()
	product := newActiveProduct(t, tenantID, "Mug", "2.00", 5)
	cart := trade.NewCart(tenantID, userID)
	require.NoError(t, cart.AddItem(product.ID, product.Name, product.Price, 1))

	carts := new(MockCartRepository)
	products := new(MockProductRepository)
	svc := NewCartService(carts, products)
	carts.On("FindByUser", mock.Anything, userID).Return(cart, nil)
	carts.On("Save", mock.Anything, cart).Return(nil)
	products.On("FindByID", mock.Anything, product.ID).Return(product, nil)

	resp, err := svc.SetQuantity(context.Background(), userID, product.ID, UpdateCartItemRequest{Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, resp.Items[0].Quantity)

	_, err = svc.SetQuantity(context.Background(), userID, product.ID, UpdateCartItemRequest{Quantity: 6})
	assert.ErrorIs(t, err, shared.ErrInsufficientStock)

	resp, err = svc.SetQuantity(context.Background(), userID, product.ID, UpdateCartItemRequest{Quantity: 0})
	require.NoError(t, err)
	assert.Empty(t, resp.Items)

	_, err = svc.RemoveItem(context.Background(), userID, product.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCartService_Clear(t *testing.T) {
	userID := uuid.New()
	carts := new(MockCartRepository)
	svc := NewCartService(carts, new(MockProductRepository))

	carts.On("FindByUser", mock.Anything, userID).Return(nil, shared.ErrNotFound).Once()
	require.NoError(t, svc.Clear(context.Background(), userID))
	carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)

	cart := trade.NewCart(uuid.New(), userID)
	require.NoError(t, cart.AddItem(uuid.New(), "Mug", decimal.NewFromInt(1), 1))
	carts.On("FindByUser", mock.Anything, userID).Return(cart, nil)
	carts.On("Save", mock.Anything, cart).Return(nil)
	require.NoError(t, svc.Clear(context.Background(), userID))
	assert.True(t, cart.IsEmpty())
}
