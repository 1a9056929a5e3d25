package trade

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/catalog"
	"github.com/jiffoo/mall/internal/domain/identity"
	"github.com/jiffoo/mall/internal/domain/plugin"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/jiffoo/mall/internal/domain/trade"
	"github.com/jiffoo/mall/internal/infrastructure/invoice"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testAddress = AddressRequest{
	Name:    "Ada Lovelace",
	Line1:   "12 St James's Square",
	City:    "London",
	Country: "GB",
}

type orderFixture struct {
	svc      *OrderService
	orders   *MockOrderRepository
	carts    *MockCartRepository
	products *MockProductRepository
	payments *MockPaymentGateway
	events   *recordingPublisher
	tx       *inlineTx
	tenant   *identity.Tenant
	userID   uuid.UUID
}

func newOrderFixture(t *testing.T, opts ...OrderServiceOption) *orderFixture {
	t.Helper()
	tenant, err := identity.NewTenant("acme", "Acme Store", "owner@acme.test")
	require.NoError(t, err)

	f := &orderFixture{
		orders:   new(MockOrderRepository),
		carts:    new(MockCartRepository),
		products: new(MockProductRepository),
		payments: new(MockPaymentGateway),
		events:   &recordingPublisher{},
		tx:       &inlineTx{},
		tenant:   tenant,
		userID:   uuid.New(),
	}
	f.svc = NewOrderService(f.orders, f.carts, f.products, f.tx, f.events, stubTenants{tenant: tenant}, f.payments, opts...)
	return f
}

// placedOrder returns a pending order of the fixture user with its
// placement events already drained
func (f *orderFixture) placedOrder(t *testing.T, items ...trade.CartItem) *trade.Order {
	t.Helper()
	cart := trade.NewCart(f.tenant.ID, f.userID)
	if len(items) == 0 {
		items = []trade.CartItem{{ProductID: uuid.New(), Name: "Mug", UnitPrice: decimal.RequireFromString("9.99"), Quantity: 2}}
	}
	for _, item := range items {
		require.NoError(t, cart.AddItem(item.ProductID, item.Name, item.UnitPrice, item.Quantity))
	}
	order, err := trade.NewOrderFromCart(cart, "USD", testAddress.toDomain(), "")
	require.NoError(t, err)
	order.PullEvents()
	return order
}

func TestOrderService_PlaceOrder(t *testing.T) {
	f := newOrderFixture(t)
	mug := newActiveProduct(t, f.tenant.ID, "Mug", "12.00", 10)
	tee := newActiveProduct(t, f.tenant.ID, "T-Shirt", "20.00", 5)

	cart := trade.NewCart(f.tenant.ID, f.userID)
	// price was 10.00 when the mug went into the cart
	require.NoError(t, cart.AddItem(mug.ID, mug.Name, decimal.RequireFromString("10.00"), 2))
	require.NoError(t, cart.AddItem(tee.ID, tee.Name, tee.Price, 1))

	f.carts.On("FindByUser", mock.Anything, f.userID).Return(cart, nil)
	f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]*catalog.Product{mug, tee}, nil)
	f.products.On("DecrementStock", mock.Anything, mug.ID, 2).Return(nil)
	f.products.On("DecrementStock", mock.Anything, tee.ID, 1).Return(nil)
	f.orders.On("Create", mock.Anything, mock.AnythingOfType("*trade.Order")).Return(nil)
	f.carts.On("Save", mock.Anything, cart).Return(nil)

	resp, err := f.svc.PlaceOrder(context.Background(), f.tenant.ID, f.userID, PlaceOrderRequest{ShippingAddress: testAddress, Note: " leave at door "})
	require.NoError(t, err)

	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "USD", resp.Currency)
	assert.Equal(t, "44.00", resp.TotalAmount.StringFixed(2))
	assert.Equal(t, "leave at door", resp.Note)
	assert.Regexp(t, `^ORD-\d{8}-[0-9A-F]{8}$`, resp.OrderNumber)
	assert.True(t, cart.IsEmpty())
	assert.Equal(t, 1, f.tx.calls)
	assert.Equal(t, []string{trade.EventTypeOrderPlaced}, f.events.types())
	f.products.AssertExpectations(t)
}

func TestOrderService_PlaceOrderRejects(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, f *orderFixture)
		address  AddressRequest
		wantCode string
	}{
		{
			name: "no cart",
			setup: func(t *testing.T, f *orderFixture) {
				f.carts.On("FindByUser", mock.Anything, f.userID).Return(nil, shared.ErrNotFound)
			},
			address:  testAddress,
			wantCode: "CART_EMPTY",
		},
		{
			name: "empty cart",
			setup: func(t *testing.T, f *orderFixture) {
				f.carts.On("FindByUser", mock.Anything, f.userID).Return(trade.NewCart(f.tenant.ID, f.userID), nil)
			},
			address:  testAddress,
			wantCode: "CART_EMPTY",
		},
		{
			name: "product withdrawn",
			setup: func(t *testing.T, f *orderFixture) {
				cart := trade.NewCart(f.tenant.ID, f.userID)
				require.NoError(t, cart.AddItem(uuid.New(), "Gone", decimal.NewFromInt(1), 1))
				f.carts.On("FindByUser", mock.Anything, f.userID).Return(cart, nil)
				f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]*catalog.Product{}, nil)
			},
			address:  testAddress,
			wantCode: "PRODUCT_UNAVAILABLE",
		},
		{
			name: "insufficient stock",
			setup: func(t *testing.T, f *orderFixture) {
				mug := newActiveProduct(t, f.tenant.ID, "Mug", "1.00", 1)
				cart := trade.NewCart(f.tenant.ID, f.userID)
				require.NoError(t, cart.AddItem(mug.ID, mug.Name, mug.Price, 3))
				f.carts.On("FindByUser", mock.Anything, f.userID).Return(cart, nil)
				f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]*catalog.Product{mug}, nil)
				f.products.On("DecrementStock", mock.Anything, mug.ID, 3).Return(shared.ErrInsufficientStock)
			},
			address:  testAddress,
			wantCode: "INSUFFICIENT_STOCK",
		},
		{
			name: "incomplete address",
			setup: func(t *testing.T, f *orderFixture) {
				mug := newActiveProduct(t, f.tenant.ID, "Mug", "1.00", 5)
				cart := trade.NewCart(f.tenant.ID, f.userID)
				require.NoError(t, cart.AddItem(mug.ID, mug.Name, mug.Price, 1))
				f.carts.On("FindByUser", mock.Anything, f.userID).Return(cart, nil)
				f.products.On("FindByIDs", mock.Anything, mock.Anything).Return([]*catalog.Product{mug}, nil)
				f.products.On("DecrementStock", mock.Anything, mug.ID, 1).Return(nil)
			},
			address:  AddressRequest{Name: "Ada", City: "London"},
			wantCode: "INVALID_ADDRESS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t)
			tt.setup(t, f)

			_, err := f.svc.PlaceOrder(context.Background(), f.tenant.ID, f.userID, PlaceOrderRequest{ShippingAddress: tt.address})
			assert.Equal(t, tt.wantCode, domainCode(t, err))
			f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			f.carts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			assert.Empty(t, f.events.types())
		})
	}
}

func TestOrderService_GetHidesOtherUsersOrders(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placedOrder(t)
	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	resp, err := f.svc.Get(context.Background(), f.userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderNumber, resp.OrderNumber)

	_, err = f.svc.Get(context.Background(), uuid.New(), order.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestOrderService_ListScopesToUser(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placedOrder(t)
	f.orders.On("FindAll", mock.Anything, mock.MatchedBy(func(filter trade.OrderFilter) bool {
		return filter.UserID != nil && *filter.UserID == f.userID &&
			filter.Page == 1 && filter.PageSize == 20 && filter.Status == trade.OrderStatusPending
	})).Return([]*trade.Order{order}, int64(1), nil)

	page, err := f.svc.List(context.Background(), f.userID, OrderListQuery{Status: "pending"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
}

func TestOrderService_Cancel(t *testing.T) {
	f := newOrderFixture(t)
	productID := uuid.New()
	order := f.placedOrder(t, trade.CartItem{ProductID: productID, Name: "Mug", UnitPrice: decimal.NewFromInt(5), Quantity: 3})
	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orders.On("Update", mock.Anything, order).Return(nil)
	f.products.On("IncrementStock", mock.Anything, productID, 3).Return(nil)

	resp, err := f.svc.Cancel(context.Background(), f.userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", resp.Status)
	assert.NotNil(t, resp.CancelledAt)
	assert.Equal(t, []string{trade.EventTypeOrderStatusChanged}, f.events.types())
	f.products.AssertExpectations(t)

	_, err = f.svc.Cancel(context.Background(), f.userID, order.ID)
	assert.Equal(t, "INVALID_STATE", domainCode(t, err))
}

func TestOrderService_CancelConflict(t *testing.T) {
	f := newOrderFixture(t)
	productID := uuid.New()
	order := f.placedOrder(t, trade.CartItem{ProductID: productID, Name: "Mug", UnitPrice: decimal.NewFromInt(5), Quantity: 1})
	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.products.On("IncrementStock", mock.Anything, productID, 1).Return(nil)
	f.orders.On("Update", mock.Anything, order).Return(shared.ErrConcurrencyConflict)

	_, err := f.svc.Cancel(context.Background(), f.userID, order.ID)
	assert.Equal(t, "CONCURRENCY_CONFLICT", domainCode(t, err))
	assert.Empty(t, f.events.types())
}

func TestOrderService_CancelPaidOrderRejected(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placedOrder(t)
	require.NoError(t, order.MarkPaid("cod", "ref"))
	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	_, err := f.svc.Cancel(context.Background(), f.userID, order.ID)
	assert.Equal(t, "INVALID_STATE", domainCode(t, err))
	f.products.AssertNotCalled(t, "IncrementStock", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_Pay(t *testing.T) {
	t.Run("pending provider keeps the order pending", func(t *testing.T) {
		f := newOrderFixture(t)
		order := f.placedOrder(t)
		cod := &stubPayment{slug: "cod", result: &plugin.ChargeResult{Reference: "cod-" + order.OrderNumber}}
		f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.orders.On("Update", mock.Anything, order).Return(nil)
		f.payments.On("Payment", mock.Anything, f.tenant.ID, "cod").Return(cod, map[string]string{}, nil)

		resp, err := f.svc.Pay(context.Background(), f.tenant.ID, f.userID, order.ID, PayOrderRequest{Provider: "cod"})
		require.NoError(t, err)
		assert.False(t, resp.Settled)
		assert.Equal(t, "pending", resp.Order.Status)
		assert.Equal(t, "cod", resp.Order.PaymentProvider)
		assert.Equal(t, "cod-"+order.OrderNumber, resp.Reference)
		require.Len(t, cod.calls, 1)
		assert.True(t, cod.calls[0].Amount.Equal(order.TotalAmount))
		assert.Empty(t, f.events.types())
	})

	t.Run("settled provider marks the order paid", func(t *testing.T) {
		f := newOrderFixture(t)
		order := f.placedOrder(t)
		card := &stubPayment{slug: "card", result: &plugin.ChargeResult{Reference: "ch_1", Settled: true}}
		f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.orders.On("Update", mock.Anything, order).Return(nil)
		f.payments.On("Payment", mock.Anything, f.tenant.ID, "card").Return(card, map[string]string{"key": "k"}, nil)

		resp, err := f.svc.Pay(context.Background(), f.tenant.ID, f.userID, order.ID, PayOrderRequest{Provider: "card"})
		require.NoError(t, err)
		assert.True(t, resp.Settled)
		assert.Equal(t, "paid", resp.Order.Status)
		assert.Equal(t, "ch_1", resp.Order.PaymentRef)
		assert.Equal(t, []string{trade.EventTypeOrderStatusChanged, trade.EventTypeOrderPaid}, f.events.types())
		assert.Equal(t, "k", card.calls[0].Config["key"])
	})

	t.Run("plugin not enabled", func(t *testing.T) {
		f := newOrderFixture(t)
		order := f.placedOrder(t)
		f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.payments.On("Payment", mock.Anything, f.tenant.ID, "stripe").
			Return(nil, nil, shared.NewDomainError("PLUGIN_DISABLED", "Plugin stripe is not enabled for this store"))

		_, err := f.svc.Pay(context.Background(), f.tenant.ID, f.userID, order.ID, PayOrderRequest{Provider: "stripe"})
		assert.Equal(t, "PLUGIN_DISABLED", domainCode(t, err))
		f.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("charge failure", func(t *testing.T) {
		f := newOrderFixture(t)
		order := f.placedOrder(t)
		failing := &stubPayment{slug: "card", err: errors.New("gateway timeout")}
		f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.payments.On("Payment", mock.Anything, f.tenant.ID, "card").Return(failing, map[string]string{}, nil)

		_, err := f.svc.Pay(context.Background(), f.tenant.ID, f.userID, order.ID, PayOrderRequest{Provider: "card"})
		assert.EqualError(t, err, "gateway timeout")
		assert.Equal(t, trade.OrderStatusPending, order.Status)
	})

	t.Run("order changed since it was read", func(t *testing.T) {
		f := newOrderFixture(t)
		order := f.placedOrder(t)
		card := &stubPayment{slug: "card", result: &plugin.ChargeResult{Reference: "ch_2", Settled: true}}
		f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		f.orders.On("Update", mock.Anything, order).Return(shared.ErrConcurrencyConflict)
		f.payments.On("Payment", mock.Anything, f.tenant.ID, "card").Return(card, map[string]string{}, nil)

		_, err := f.svc.Pay(context.Background(), f.tenant.ID, f.userID, order.ID, PayOrderRequest{Provider: "card"})
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Equal(t, 1, f.tx.calls)
		assert.Empty(t, f.events.types())
	})

	t.Run("order already paid", func(t *testing.T) {
		f := newOrderFixture(t)
		order := f.placedOrder(t)
		require.NoError(t, order.MarkPaid("cod", "ref"))
		f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := f.svc.Pay(context.Background(), f.tenant.ID, f.userID, order.ID, PayOrderRequest{Provider: "cod"})
		assert.Equal(t, "INVALID_STATE", domainCode(t, err))
		f.payments.AssertNotCalled(t, "Payment", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOrderService_UpdateStatus(t *testing.T) {
	tests := []struct {
		name         string
		from         []trade.OrderStatus
		to           string
		wantCode     string
		wantRestored bool
	}{
		{name: "pending to paid", to: "paid"},
		{name: "paid to shipped", from: []trade.OrderStatus{trade.OrderStatusPaid}, to: "shipped"},
		{name: "paid to cancelled restores stock", from: []trade.OrderStatus{trade.OrderStatusPaid}, to: "cancelled", wantRestored: true},
		{name: "pending to shipped", to: "shipped", wantCode: "INVALID_STATE"},
		{
			name:     "delivered to cancelled",
			from:     []trade.OrderStatus{trade.OrderStatusPaid, trade.OrderStatusShipped, trade.OrderStatusDelivered},
			to:       "cancelled",
			wantCode: "INVALID_STATE",
		},
		{name: "refunded is final", from: []trade.OrderStatus{trade.OrderStatusPaid, trade.OrderStatusRefunded}, to: "shipped", wantCode: "INVALID_STATE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t)
			productID := uuid.New()
			order := f.placedOrder(t, trade.CartItem{ProductID: productID, Name: "Mug", UnitPrice: decimal.NewFromInt(4), Quantity: 2})
			for _, s := range tt.from {
				require.NoError(t, order.TransitionTo(s))
			}
			order.PullEvents()
			f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
			f.orders.On("Update", mock.Anything, order).Return(nil)
			f.products.On("IncrementStock", mock.Anything, productID, 2).Return(nil)

			resp, err := f.svc.UpdateStatus(context.Background(), order.ID, OrderStatusRequest{Status: tt.to})
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, domainCode(t, err))
				f.orders.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.to, resp.Status)
			if tt.wantRestored {
				f.products.AssertCalled(t, "IncrementStock", mock.Anything, productID, 2)
			} else {
				f.products.AssertNotCalled(t, "IncrementStock", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

func TestOrderService_InternalUpdateStatusRecordsPayment(t *testing.T) {
	f := newOrderFixture(t)
	order := f.placedOrder(t)
	order.PaymentProvider = "stripe"
	order.PaymentRef = "cs_123"
	f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	f.orders.On("Update", mock.Anything, order).Return(nil)

	resp, err := f.svc.InternalUpdateStatus(context.Background(), order.ID, InternalOrderStatusRequest{Status: "paid", PaymentRef: "pi_456"})
	require.NoError(t, err)
	assert.Equal(t, "paid", resp.Status)
	assert.Equal(t, "stripe", resp.PaymentProvider)
	assert.Equal(t, "pi_456", resp.PaymentRef)
	assert.NotNil(t, resp.PaidAt)
	assert.Equal(t, []string{trade.EventTypeOrderStatusChanged, trade.EventTypeOrderPaid}, f.events.types())
}

type fakePDF struct {
	html []byte
}

func (p *fakePDF) RenderPDF(_ context.Context, html []byte) ([]byte, error) {
	p.html = html
	return []byte("%PDF-1.7 fake"), nil
}

func TestOrderService_Invoice(t *testing.T) {
	tmpl, err := invoice.NewTemplate()
	require.NoError(t, err)

	t.Run("html", func(t *testing.T) {
		f := newOrderFixture(t, WithInvoices(tmpl, nil))
		order := f.placedOrder(t)
		f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		doc, err := f.svc.Invoice(context.Background(), f.tenant.ID, f.userID, order.ID, "")
		require.NoError(t, err)
		assert.Equal(t, order.OrderNumber+".html", doc.Filename)
		assert.Contains(t, doc.ContentType, "text/html")
		assert.Contains(t, string(doc.Body), "Acme Store")
		assert.Contains(t, string(doc.Body), order.OrderNumber)
	})

	t.Run("pdf", func(t *testing.T) {
		pdf := &fakePDF{}
		f := newOrderFixture(t, WithInvoices(tmpl, pdf))
		order := f.placedOrder(t)
		f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		doc, err := f.svc.Invoice(context.Background(), f.tenant.ID, f.userID, order.ID, InvoiceFormatPDF)
		require.NoError(t, err)
		assert.Equal(t, "application/pdf", doc.ContentType)
		assert.Equal(t, order.OrderNumber+".pdf", doc.Filename)
		assert.Contains(t, string(pdf.html), order.OrderNumber)
	})

	t.Run("pdf without renderer", func(t *testing.T) {
		f := newOrderFixture(t, WithInvoices(tmpl, nil))
		_, err := f.svc.Invoice(context.Background(), f.tenant.ID, f.userID, uuid.New(), InvoiceFormatPDF)
		assert.Equal(t, "INVALID_INPUT", domainCode(t, err))
	})

	t.Run("unknown format", func(t *testing.T) {
		f := newOrderFixture(t, WithInvoices(tmpl, nil))
		_, err := f.svc.Invoice(context.Background(), f.tenant.ID, f.userID, uuid.New(), "docx")
		assert.Equal(t, "INVALID_INPUT", domainCode(t, err))
	})

	t.Run("another user's order", func(t *testing.T) {
		f := newOrderFixture(t, WithInvoices(tmpl, nil))
		order := f.placedOrder(t)
		f.orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := f.svc.Invoice(context.Background(), f.tenant.ID, uuid.New(), order.ID, "html")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}
