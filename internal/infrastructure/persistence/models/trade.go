package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// CartModel is the persistence model for the Cart aggregate.
type CartModel struct {
	TenantScopedModel
	UserID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Items  []CartItemModel `gorm:"foreignKey:CartID;references:ID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (CartModel) TableName() string {
	return "carts"
}

// CartItemModel is the persistence model for a cart line.
type CartItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	CartID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null"`
	Name      string          `gorm:"type:varchar(200);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Quantity  int             `gorm:"not null"`
	Position  int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (CartItemModel) TableName() string {
	return "cart_items"
}

// ToDomain converts the persistence model to a domain Cart.
func (m *CartModel) ToDomain() *trade.Cart {
	c := &trade.Cart{
		TenantEntity: m.ToTenantEntity(),
		UserID:       m.UserID,
		Items:        make([]trade.CartItem, 0, len(m.Items)),
	}
	for _, it := range m.Items {
		c.Items = append(c.Items, trade.CartItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		})
	}
	return c
}

// CartModelFromDomain creates a new persistence model from a domain Cart.
// Line IDs are regenerated since lines are replaced on every save.
func CartModelFromDomain(c *trade.Cart) *CartModel {
	m := &CartModel{UserID: c.UserID}
	m.FromDomainTenantEntity(c.TenantEntity)
	m.Items = make([]CartItemModel, 0, len(c.Items))
	for i, it := range c.Items {
		m.Items = append(m.Items, CartItemModel{
			ID:        uuid.New(),
			TenantID:  c.TenantID,
			CartID:    c.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Position:  i,
		})
	}
	return m
}

// OrderModel is the persistence model for the Order aggregate.
type OrderModel struct {
	TenantScopedModel
	OrderNumber     string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	UserID          uuid.UUID             `gorm:"type:uuid;not null;index"`
	Status          trade.OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index"`
	Items           []OrderItemModel      `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`
	TotalAmount     decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	Currency        string                `gorm:"type:varchar(3);not null"`
	ShippingAddress trade.ShippingAddress `gorm:"type:jsonb;serializer:json"`
	Note            string                `gorm:"type:text"`
	PaymentProvider string                `gorm:"type:varchar(50)"`
	PaymentRef      string                `gorm:"type:varchar(200)"`
	PaidAt          *time.Time            `gorm:"index"`
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	CancelledAt     *time.Time
	Version         int `gorm:"not null;default:1"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name      string          `gorm:"type:varchar(200);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Quantity  int             `gorm:"not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *trade.Order {
	o := &trade.Order{
		TenantEntity:    m.ToTenantEntity(),
		OrderNumber:     m.OrderNumber,
		UserID:          m.UserID,
		Status:          m.Status,
		Items:           make([]trade.OrderItem, 0, len(m.Items)),
		TotalAmount:     m.TotalAmount,
		Currency:        m.Currency,
		ShippingAddress: m.ShippingAddress,
		Note:            m.Note,
		PaymentProvider: m.PaymentProvider,
		PaymentRef:      m.PaymentRef,
		PaidAt:          m.PaidAt,
		ShippedAt:       m.ShippedAt,
		DeliveredAt:     m.DeliveredAt,
		CancelledAt:     m.CancelledAt,
		Version:         m.Version,
	}
	for _, it := range m.Items {
		o.Items = append(o.Items, trade.OrderItem{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Amount:    it.Amount,
		})
	}
	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.FromDomainTenantEntity(o.TenantEntity)
	m.OrderNumber = o.OrderNumber
	m.UserID = o.UserID
	m.Status = o.Status
	m.TotalAmount = o.TotalAmount
	m.Currency = o.Currency
	m.ShippingAddress = o.ShippingAddress
	m.Note = o.Note
	m.PaymentProvider = o.PaymentProvider
	m.PaymentRef = o.PaymentRef
	m.PaidAt = o.PaidAt
	m.ShippedAt = o.ShippedAt
	m.DeliveredAt = o.DeliveredAt
	m.CancelledAt = o.CancelledAt
	m.Version = o.Version
	m.Items = make([]OrderItemModel, 0, len(o.Items))
	for _, it := range o.Items {
		m.Items = append(m.Items, OrderItemModel{
			ID:        it.ID,
			TenantID:  o.TenantID,
			OrderID:   o.ID,
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Amount:    it.Amount,
		})
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order.
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}
