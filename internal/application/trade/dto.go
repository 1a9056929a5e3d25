package trade

import (
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// AddCartItemRequest adds units of a product to the cart
type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=99"`
}

// UpdateCartItemRequest sets the quantity of a cart line. Zero removes it.
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" binding:"min=0,max=99"`
}

// AddressRequest is the shipping address given at checkout
type AddressRequest struct {
	Name       string `json:"name" binding:"required,max=100"`
	Phone      string `json:"phone" binding:"max=30"`
	Line1      string `json:"line1" binding:"required,max=200"`
	Line2      string `json:"line2" binding:"max=200"`
	City       string `json:"city" binding:"required,max=100"`
	State      string `json:"state" binding:"max=100"`
	PostalCode string `json:"postal_code" binding:"max=20"`
	Country    string `json:"country" binding:"required,max=100"`
}

func (a AddressRequest) toDomain() trade.ShippingAddress {
	return trade.ShippingAddress{
		Name:       a.Name,
		Phone:      a.Phone,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// PlaceOrderRequest turns the caller's cart into an order
type PlaceOrderRequest struct {
	ShippingAddress AddressRequest `json:"shipping_address" binding:"required"`
	Note            string         `json:"note" binding:"max=500"`
}

// PayOrderRequest pays an order through a payment plugin
type PayOrderRequest struct {
	Provider string `json:"provider" binding:"required,max=64"`
}

// OrderStatusRequest is a staff-driven lifecycle transition
type OrderStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending paid shipped delivered cancelled refunded"`
}

// InternalOrderStatusRequest is a status update relayed by a payment
// webhook. Provider and PaymentRef are recorded when the order becomes paid.
type InternalOrderStatusRequest struct {
	Status     string `json:"status" binding:"required,oneof=paid shipped delivered cancelled refunded"`
	Provider   string `json:"provider" binding:"max=64"`
	PaymentRef string `json:"payment_ref" binding:"max=255"`
}

// OrderListQuery holds the order listing query parameters
type OrderListQuery struct {
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search    string `form:"search" binding:"max=100"`
	Status    string `form:"status" binding:"omitempty,oneof=pending paid shipped delivered cancelled refunded"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
}

// CartItemResponse is one cart line
type CartItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price" swaggertype:"string"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal" swaggertype:"string"`
}

// CartResponse is the caller's cart
type CartResponse struct {
	Items     []CartItemResponse `json:"items"`
	ItemCount int                `json:"item_count"`
	Total     decimal.Decimal    `json:"total" swaggertype:"string"`
	UpdatedAt *time.Time         `json:"updated_at,omitempty"`
}

// ToCartResponse converts a domain cart. A nil cart is an empty one.
func ToCartResponse(c *trade.Cart) CartResponse {
	if c == nil {
		return CartResponse{Items: []CartItemResponse{}, Total: decimal.Zero}
	}
	items := make([]CartItemResponse, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, CartItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal(),
		})
	}
	updated := c.UpdatedAt
	return CartResponse{
		Items:     items,
		ItemCount: c.ItemCount(),
		Total:     c.Total(),
		UpdatedAt: &updated,
	}
}

// OrderItemResponse is one order line
type OrderItemResponse struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price" swaggertype:"string"`
	Quantity  int             `json:"quantity"`
	Amount    decimal.Decimal `json:"amount" swaggertype:"string"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID              uuid.UUID             `json:"id"`
	TenantID        uuid.UUID             `json:"tenant_id"`
	OrderNumber     string                `json:"order_number"`
	UserID          uuid.UUID             `json:"user_id"`
	Status          string                `json:"status"`
	Items           []OrderItemResponse   `json:"items"`
	TotalAmount     decimal.Decimal       `json:"total_amount" swaggertype:"string"`
	Currency        string                `json:"currency"`
	ShippingAddress trade.ShippingAddress `json:"shipping_address"`
	Note            string                `json:"note,omitempty"`
	PaymentProvider string                `json:"payment_provider,omitempty"`
	PaymentRef      string                `json:"payment_ref,omitempty"`
	PaidAt          *time.Time            `json:"paid_at,omitempty"`
	ShippedAt       *time.Time            `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time            `json:"delivered_at,omitempty"`
	CancelledAt     *time.Time            `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// ToOrderResponse converts a domain order
func ToOrderResponse(o *trade.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			Amount:    item.Amount,
		})
	}
	return OrderResponse{
		ID:              o.ID,
		TenantID:        o.TenantID,
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Status:          string(o.Status),
		Items:           items,
		TotalAmount:     o.TotalAmount,
		Currency:        o.Currency,
		ShippingAddress: o.ShippingAddress,
		Note:            o.Note,
		PaymentProvider: o.PaymentProvider,
		PaymentRef:      o.PaymentRef,
		PaidAt:          o.PaidAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		CancelledAt:     o.CancelledAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

// ToOrderResponses converts a slice of domain orders
func ToOrderResponses(orders []*trade.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i, o := range orders {
		out[i] = ToOrderResponse(o)
	}
	return out
}

// PaymentResponse is the outcome of starting a payment
type PaymentResponse struct {
	Order       OrderResponse `json:"order"`
	Provider    string        `json:"provider"`
	Reference   string        `json:"reference"`
	RedirectURL string        `json:"redirect_url,omitempty"`
	Settled     bool          `json:"settled"`
}

// Invoice formats
const (
	InvoiceFormatHTML = "html"
	InvoiceFormatPDF  = "pdf"
)

// InvoiceDocument is a rendered invoice
type InvoiceDocument struct {
	Filename    string
	ContentType string
	Body        []byte
}
