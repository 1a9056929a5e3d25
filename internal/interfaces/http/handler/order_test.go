package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	catalogapp "github.com/jiffoo/mall/internal/application/catalog"
	pluginapp "github.com/jiffoo/mall/internal/application/plugin"
	tradeapp "github.com/jiffoo/mall/internal/application/trade"
	"github.com/jiffoo/mall/internal/infrastructure/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testAddress = tradeapp.AddressRequest{
	Name:       "Jane Doe",
	Line1:      "1 Market St",
	City:       "Springfield",
	PostalCode: "12345",
	Country:    "US",
}

// shop holds one store with a customer and stock on its shelves
type shop struct {
	env        *testEnv
	tenantID   uuid.UUID
	adminToken string
	token      string
	tent       catalogapp.ProductResponse
	stove      catalogapp.ProductResponse
}

func newShop(t *testing.T) *shop {
	env := newTestEnv(t)
	store, adminToken := env.store("acme")
	_, token := env.customer(store.ID, "jane@example.com")
	return &shop{
		env:        env,
		tenantID:   store.ID,
		adminToken: adminToken,
		token:      token,
		tent:       env.product(store.ID, "Trail Tent", "199.00", 5),
		stove:      env.product(store.ID, "Camp Stove", "49.50", 10),
	}
}

func (s *shop) addToCart(productID uuid.UUID, qty int) {
	s.env.t.Helper()
	w := s.env.do(http.MethodPost, "/api/v1/cart/items",
		tradeapp.AddCartItemRequest{ProductID: productID, Quantity: qty}, withToken(s.token))
	require.Equal(s.env.t, http.StatusOK, w.Code, w.Body.String())
}

func (s *shop) checkout() tradeapp.OrderResponse {
	s.env.t.Helper()
	w := s.env.do(http.MethodPost, "/api/v1/orders",
		tradeapp.PlaceOrderRequest{ShippingAddress: testAddress}, withToken(s.token))
	require.Equal(s.env.t, http.StatusCreated, w.Code, w.Body.String())
	return decodeData[tradeapp.OrderResponse](s.env.t, w)
}

func (s *shop) stock(productID uuid.UUID) int {
	s.env.t.Helper()
	p, err := s.env.products.Get(s.env.ctx(s.tenantID), productID)
	require.NoError(s.env.t, err)
	return p.Stock
}

func (s *shop) installCOD() {
	s.env.t.Helper()
	w := s.env.do(http.MethodPost, "/api/v1/admin/plugins", pluginapp.InstallRequest{Slug: "cod"}, withToken(s.adminToken))
	require.Equal(s.env.t, http.StatusCreated, w.Code, w.Body.String())
}

func TestOrderHandler_Place(t *testing.T) {
	s := newShop(t)
	env := s.env

	w := env.do(http.MethodPost, "/api/v1/orders", tradeapp.PlaceOrderRequest{ShippingAddress: testAddress}, withToken(s.token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CART_EMPTY", decodeError(t, w).Code)

	w = env.do(http.MethodPost, "/api/v1/orders", map[string]any{"shipping_address": map[string]string{"name": "Jane"}}, withToken(s.token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)

	s.addToCart(s.tent.ID, 2)
	s.addToCart(s.stove.ID, 1)
	order := s.checkout()

	assert.Equal(t, "pending", order.Status)
	assert.Equal(t, "447.5", order.TotalAmount.String())
	assert.Equal(t, "USD", order.Currency)
	assert.Len(t, order.Items, 2)
	assert.NotEmpty(t, order.OrderNumber)
	assert.Equal(t, "Springfield", order.ShippingAddress.City)

	assert.Equal(t, 3, s.stock(s.tent.ID))
	assert.Equal(t, 9, s.stock(s.stove.ID))

	w = env.do(http.MethodGet, "/api/v1/cart", nil, withToken(s.token))
	assert.Empty(t, decodeData[tradeapp.CartResponse](t, w).Items)

	w = env.do(http.MethodGet, "/api/v1/orders", nil, withToken(s.token))
	require.Equal(t, http.StatusOK, w.Code)
	orders := decodeData[[]tradeapp.OrderResponse](t, w)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
}

func TestOrderHandler_PlaceOutOfStock(t *testing.T) {
	s := newShop(t)
	s.addToCart(s.tent.ID, 3)

	// stock sold elsewhere between add-to-cart and checkout
	remaining := 1
	_, err := s.env.products.Update(s.env.ctx(s.tenantID), s.tent.ID, catalogapp.UpdateProductRequest{Stock: &remaining})
	require.NoError(t, err)

	w := s.env.do(http.MethodPost, "/api/v1/orders", tradeapp.PlaceOrderRequest{ShippingAddress: testAddress}, withToken(s.token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INSUFFICIENT_STOCK", decodeError(t, w).Code)
	assert.Equal(t, 1, s.stock(s.tent.ID))

	w = s.env.do(http.MethodGet, "/api/v1/cart", nil, withToken(s.token))
	assert.Len(t, decodeData[tradeapp.CartResponse](t, w).Items, 1, "a failed checkout keeps the cart")
}

func TestOrderHandler_OwnerOnly(t *testing.T) {
	s := newShop(t)
	s.addToCart(s.tent.ID, 1)
	order := s.checkout()
	_, otherToken := s.env.customer(s.tenantID, "john@example.com")
	path := "/api/v1/orders/" + order.ID.String()

	w := s.env.do(http.MethodGet, path, nil, withToken(s.token))
	require.Equal(t, http.StatusOK, w.Code)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, path},
		{http.MethodPost, path + "/cancel"},
		{http.MethodGet, path + "/invoice"},
	} {
		w := s.env.do(tc.method, tc.path, nil, withToken(otherToken))
		assert.Equal(t, http.StatusNotFound, w.Code, tc.method+" "+tc.path)
	}

	w = s.env.do(http.MethodGet, "/api/v1/orders", nil, withToken(otherToken))
	assert.Empty(t, decodeData[[]tradeapp.OrderResponse](t, w))
}

func TestOrderHandler_Cancel(t *testing.T) {
	s := newShop(t)
	s.addToCart(s.tent.ID, 2)
	order := s.checkout()
	require.Equal(t, 3, s.stock(s.tent.ID))
	path := "/api/v1/orders/" + order.ID.String() + "/cancel"

	w := s.env.do(http.MethodPost, path, nil, withToken(s.token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "cancelled", decodeData[tradeapp.OrderResponse](t, w).Status)
	assert.Equal(t, 5, s.stock(s.tent.ID))

	w = s.env.do(http.MethodPost, path, nil, withToken(s.token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, w).Code)
	assert.Equal(t, 5, s.stock(s.tent.ID))
}

func TestOrderHandler_PayCashOnDelivery(t *testing.T) {
	s := newShop(t)
	s.addToCart(s.stove.ID, 2)
	order := s.checkout()
	path := "/api/v1/orders/" + order.ID.String() + "/pay"

	w := s.env.do(http.MethodPost, path, tradeapp.PayOrderRequest{Provider: "cod"}, withToken(s.token))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "PLUGIN_DISABLED", decodeError(t, w).Code)

	s.installCOD()
	w = s.env.do(http.MethodPost, path, tradeapp.PayOrderRequest{Provider: "cod"}, withToken(s.token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	payment := decodeData[tradeapp.PaymentResponse](t, w)
	assert.False(t, payment.Settled)
	assert.Equal(t, "cod-"+order.OrderNumber, payment.Reference)
	assert.Equal(t, "pending", payment.Order.Status)
	assert.Equal(t, "cod", payment.Order.PaymentProvider)

	w = s.env.do(http.MethodPost, path, tradeapp.PayOrderRequest{Provider: "newsletter"}, withToken(s.token))
	assert.GreaterOrEqual(t, w.Code, http.StatusBadRequest)
	assert.Less(t, w.Code, http.StatusInternalServerError)

	// staff confirm the cash on delivery; the stored reference is kept
	w = s.env.do(http.MethodPut, "/api/v1/admin/orders/"+order.ID.String()+"/status",
		tradeapp.OrderStatusRequest{Status: "paid"}, withToken(s.adminToken))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decodeData[tradeapp.OrderResponse](t, w)
	assert.Equal(t, "paid", paid.Status)
	assert.Equal(t, "cod-"+order.OrderNumber, paid.PaymentRef)
	assert.NotNil(t, paid.PaidAt)

	w = s.env.do(http.MethodPost, path, tradeapp.PayOrderRequest{Provider: "cod"}, withToken(s.token))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, w).Code)
}

func TestOrderHandler_AdminStatus(t *testing.T) {
	s := newShop(t)
	s.addToCart(s.tent.ID, 1)
	first := s.checkout()
	s.addToCart(s.stove.ID, 1)
	second := s.checkout()
	statusPath := func(id uuid.UUID) string { return "/api/v1/admin/orders/" + id.String() + "/status" }

	w := s.env.do(http.MethodPut, statusPath(first.ID), tradeapp.OrderStatusRequest{Status: "shipped"}, withToken(s.adminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATE", decodeError(t, w).Code)

	w = s.env.do(http.MethodPut, statusPath(first.ID), tradeapp.OrderStatusRequest{Status: "lost"}, withToken(s.adminToken))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeError(t, w).Code)

	for _, status := range []string{"paid", "shipped", "delivered"} {
		w = s.env.do(http.MethodPut, statusPath(first.ID), tradeapp.OrderStatusRequest{Status: status}, withToken(s.adminToken))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, status, decodeData[tradeapp.OrderResponse](t, w).Status)
	}

	w = s.env.do(http.MethodPut, statusPath(second.ID), tradeapp.OrderStatusRequest{Status: "cancelled"}, withToken(s.adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, s.stock(s.stove.ID))

	w = s.env.do(http.MethodGet, "/api/v1/admin/orders?status=delivered", nil, withToken(s.adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	delivered := decodeData[[]tradeapp.OrderResponse](t, w)
	require.Len(t, delivered, 1)
	assert.Equal(t, first.ID, delivered[0].ID)

	w = s.env.do(http.MethodGet, "/api/v1/admin/orders/"+second.ID.String(), nil, withToken(s.adminToken))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cancelled", decodeData[tradeapp.OrderResponse](t, w).Status)

	w = s.env.do(http.MethodGet, "/api/v1/admin/orders", nil, withToken(s.token))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestOrderHandler_InternalStatus(t *testing.T) {
	s := newShop(t)
	s.addToCart(s.tent.ID, 1)
	order := s.checkout()
	path := "/api/v1/internal/orders/" + order.ID.String() + "/status"
	body := tradeapp.InternalOrderStatusRequest{Status: "paid", Provider: "stripe", PaymentRef: "pi_123"}

	w := s.env.do(http.MethodPut, path, body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "SERVICE_UNAUTHORIZED", decodeError(t, w).Code)

	w = s.env.do(http.MethodPut, path, body, withHeader("X-Service-Token", s.env.serviceToken(s.tenantID, auth.ScopeOrdersRead)))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.env.do(http.MethodPut, path, body, withHeader("X-Service-Token", s.env.serviceToken(uuid.New(), auth.ScopeOrdersWrite)))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.env.do(http.MethodPut, path, body, withHeader("X-Service-Token", s.env.serviceToken(s.tenantID, auth.ScopeOrdersWrite)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	paid := decodeData[tradeapp.OrderResponse](t, w)
	assert.Equal(t, "paid", paid.Status)
	assert.Equal(t, "stripe", paid.PaymentProvider)
	assert.Equal(t, "pi_123", paid.PaymentRef)
}

func TestOrderHandler_Invoice(t *testing.T) {
	s := newShop(t)
	s.addToCart(s.tent.ID, 1)
	order := s.checkout()
	path := "/api/v1/orders/" + order.ID.String() + "/invoice"

	w := s.env.do(http.MethodGet, path, nil, withToken(s.token))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/html"))
	assert.Equal(t, `inline; filename="`+order.OrderNumber+`.html"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), order.OrderNumber)
	assert.Contains(t, w.Body.String(), "Trail Tent")

	tests := []struct {
		format       string
		expectedCode int
	}{
		{format: "pdf", expectedCode: http.StatusBadRequest},
		{format: "xml", expectedCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w := s.env.do(http.MethodGet, path+"?format="+tt.format, nil, withToken(s.token))
			assert.Equal(t, tt.expectedCode, w.Code)
			assert.Equal(t, "INVALID_INPUT", decodeError(t, w).Code)
		})
	}
}
