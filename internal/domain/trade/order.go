package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderStatus represents where an order is in its lifecycle
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRefunded  OrderStatus = "refunded"
)

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPaid, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo checks if the status can transition to the target status
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return target == OrderStatusPaid || target == OrderStatusCancelled
	case OrderStatusPaid:
		return target == OrderStatusShipped || target == OrderStatusCancelled || target == OrderStatusRefunded
	case OrderStatusShipped:
		return target == OrderStatusDelivered || target == OrderStatusRefunded
	case OrderStatusDelivered:
		return target == OrderStatusRefunded
	case OrderStatusCancelled, OrderStatusRefunded:
		return false
	}
	return false
}

// RestoresStock reports whether entering this status puts items back on the shelf
func (s OrderStatus) RestoresStock() bool {
	return s == OrderStatusCancelled
}

// ShippingAddress is where the order is delivered
type ShippingAddress struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Validate checks that the address can be shipped to
func (a ShippingAddress) Validate() error {
	if strings.TrimSpace(a.Name) == "" || strings.TrimSpace(a.Line1) == "" ||
		strings.TrimSpace(a.City) == "" || strings.TrimSpace(a.Country) == "" {
		return shared.NewDomainError("INVALID_ADDRESS", "Shipping address requires name, line1, city and country")
	}
	return nil
}

// OrderItem is a product line frozen at order time
type OrderItem struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Amount    decimal.Decimal
}

// Order is a placed purchase
type Order struct {
	shared.TenantEntity
	OrderNumber     string
	UserID          uuid.UUID
	Status          OrderStatus
	Items           []OrderItem
	TotalAmount     decimal.Decimal
	Currency        string
	ShippingAddress ShippingAddress
	Note            string
	PaymentProvider string
	PaymentRef      string
	PaidAt          *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
	// Version counts saved changes. A save made from a stale copy fails
	// with ErrConcurrencyConflict.
	Version int
}

// NewOrderFromCart freezes the cart lines into a pending order
func NewOrderFromCart(cart *Cart, currency string, address ShippingAddress, note string) (*Order, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, shared.ErrCartEmpty
	}
	if err := address.Validate(); err != nil {
		return nil, err
	}

	o := &Order{
		TenantEntity:    shared.NewTenantEntity(cart.TenantID),
		UserID:          cart.UserID,
		Status:          OrderStatusPending,
		Currency:        currency,
		ShippingAddress: address,
		Note:            strings.TrimSpace(note),
		Items:           make([]OrderItem, 0, len(cart.Items)),
		Version:         1,
	}
	o.OrderNumber = generateOrderNumber(o.ID, o.CreatedAt)

	total := decimal.Zero
	for _, line := range cart.Items {
		amount := line.Subtotal()
		o.Items = append(o.Items, OrderItem{
			ID:        uuid.New(),
			ProductID: line.ProductID,
			Name:      line.Name,
			UnitPrice: line.UnitPrice,
			Quantity:  line.Quantity,
			Amount:    amount,
		})
		total = total.Add(amount)
	}
	o.TotalAmount = total

	o.Record(NewOrderPlacedEvent(o))
	return o, nil
}

// TransitionTo moves the order to target, stamping the matching timestamp
func (o *Order) TransitionTo(target OrderStatus) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", fmt.Sprintf("Unknown order status %q", target))
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot move order from %s to %s", o.Status, target))
	}

	now := time.Now()
	from := o.Status
	o.Status = target
	o.UpdatedAt = now
	switch target {
	case OrderStatusPaid:
		o.PaidAt = &now
	case OrderStatusShipped:
		o.ShippedAt = &now
	case OrderStatusDelivered:
		o.DeliveredAt = &now
	case OrderStatusCancelled:
		o.CancelledAt = &now
	}

	o.Record(NewOrderStatusChangedEvent(o, from))
	return nil
}

// MarkPaid records a successful payment
func (o *Order) MarkPaid(provider, ref string) error {
	if err := o.TransitionTo(OrderStatusPaid); err != nil {
		return err
	}
	o.PaymentProvider = provider
	o.PaymentRef = ref
	o.Record(NewOrderPaidEvent(o))
	return nil
}

// Cancel cancels the order on behalf of its owner. Owners may only cancel
// orders that have not been paid yet.
func (o *Order) Cancel() error {
	if o.Status != OrderStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending orders can be cancelled")
	}
	return o.TransitionTo(OrderStatusCancelled)
}

// BelongsTo reports whether userID placed this order
func (o *Order) BelongsTo(userID uuid.UUID) bool {
	return o.UserID == userID
}

func generateOrderNumber(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("ORD-%s-%s", at.Format("20060102"), strings.ToUpper(id.String()[:8]))
}
