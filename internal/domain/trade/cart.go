package trade

import (
	"github.com/google/uuid"
	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MaxItemQuantity is the most units of one product a cart line may hold
const MaxItemQuantity = 99

// CartItem is one product line in a cart
type CartItem struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// Subtotal returns UnitPrice * Quantity
func (i CartItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart holds the items a user intends to order. There is one cart per user
// per store.
type Cart struct {
	shared.TenantEntity
	UserID uuid.UUID
	Items  []CartItem
}

// NewCart creates an empty cart
func NewCart(tenantID, userID uuid.UUID) *Cart {
	return &Cart{
		TenantEntity: shared.NewTenantEntity(tenantID),
		UserID:       userID,
		Items:        make([]CartItem, 0),
	}
}

// AddItem adds qty units of a product, merging with an existing line
func (c *Cart) AddItem(productID uuid.UUID, name string, unitPrice decimal.Decimal, qty int) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return c.setQuantityAt(i, c.Items[i].Quantity+qty, unitPrice)
		}
	}
	if qty > MaxItemQuantity {
		return errQuantityTooLarge
	}
	c.Items = append(c.Items, CartItem{
		ProductID: productID,
		Name:      name,
		UnitPrice: unitPrice,
		Quantity:  qty,
	})
	c.Touch()
	return nil
}

// SetQuantity sets the quantity of a line; zero removes it
func (c *Cart) SetQuantity(productID uuid.UUID, qty int) error {
	if qty < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			if qty == 0 {
				return c.RemoveItem(productID)
			}
			return c.setQuantityAt(i, qty, c.Items[i].UnitPrice)
		}
	}
	return shared.NewDomainError("NOT_FOUND", "Product is not in the cart")
}

func (c *Cart) setQuantityAt(i, qty int, unitPrice decimal.Decimal) error {
	if qty > MaxItemQuantity {
		return errQuantityTooLarge
	}
	c.Items[i].Quantity = qty
	c.Items[i].UnitPrice = unitPrice
	c.Touch()
	return nil
}

// RemoveItem drops a line from the cart
func (c *Cart) RemoveItem(productID uuid.UUID) error {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.Touch()
			return nil
		}
	}
	return shared.NewDomainError("NOT_FOUND", "Product is not in the cart")
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.Items = make([]CartItem, 0)
	c.Touch()
}

// IsEmpty returns true if the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Total returns the sum of all line subtotals
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount returns the number of units across all lines
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

var errQuantityTooLarge = shared.NewDomainError("INVALID_QUANTITY", "Quantity cannot exceed 99")
