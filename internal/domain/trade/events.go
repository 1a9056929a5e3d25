package trade

import (
	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types raised by orders
const (
	EventTypeOrderPlaced        = "OrderPlaced"
	EventTypeOrderPaid          = "OrderPaid"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
)

// OrderPlacedEvent is raised when an order is created from a cart
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Currency    string          `json:"currency"`
}

// NewOrderPlacedEvent creates an OrderPlacedEvent
func NewOrderPlacedEvent(o *Order) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, o.ID, o.TenantID),
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		TotalAmount:     o.TotalAmount,
		Currency:        o.Currency,
	}
}

// OrderPaidEvent is raised when a payment plugin confirms payment
type OrderPaidEvent struct {
	shared.BaseDomainEvent
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	Provider    string          `json:"provider"`
	PaymentRef  string          `json:"payment_ref"`
	Amount      decimal.Decimal `json:"amount"`
}

// NewOrderPaidEvent creates an OrderPaidEvent
func NewOrderPaidEvent(o *Order) *OrderPaidEvent {
	return &OrderPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPaid, o.ID, o.TenantID),
		OrderNumber:     o.OrderNumber,
		UserID:          o.UserID,
		Provider:        o.PaymentProvider,
		PaymentRef:      o.PaymentRef,
		Amount:          o.TotalAmount,
	}
}

// OrderStatusChangedEvent is raised on every lifecycle transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderNumber string      `json:"order_number"`
	From        OrderStatus `json:"from"`
	To          OrderStatus `json:"to"`
}

// NewOrderStatusChangedEvent creates an OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, from OrderStatus) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, o.ID, o.TenantID),
		OrderNumber:     o.OrderNumber,
		From:            from,
		To:              o.Status,
	}
}
