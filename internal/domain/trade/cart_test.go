package trade

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_AddItem(t *testing.T) {
	cart := NewCart(uuid.New(), uuid.New())
	productID := uuid.New()
	price := decimal.RequireFromString("9.99")

	require.NoError(t, cart.AddItem(productID, "Mug", price, 2))
	require.NoError(t, cart.AddItem(productID, "Mug", price, 3))

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.Equal(t, "49.95", cart.Total().StringFixed(2))
	assert.Equal(t, 5, cart.ItemCount())

	t.Run("rejects merged quantity above limit", func(t *testing.T) {
		err := cart.AddItem(productID, "Mug", price, MaxItemQuantity)
		assert.Error(t, err)
		assert.Equal(t, 5, cart.Items[0].Quantity)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		assert.Error(t, cart.AddItem(uuid.New(), "Cup", price, 0))
	})
}

func TestCart_SetQuantity(t *testing.T) {
	cart := NewCart(uuid.New(), uuid.New())
	productID := uuid.New()
	require.NoError(t, cart.AddItem(productID, "Mug", decimal.NewFromInt(3), 1))

	require.NoError(t, cart.SetQuantity(productID, 4))
	assert.Equal(t, 4, cart.Items[0].Quantity)

	require.NoError(t, cart.SetQuantity(productID, 0))
	assert.True(t, cart.IsEmpty())

	assert.Error(t, cart.SetQuantity(productID, 1))
	assert.Error(t, cart.RemoveItem(productID))
}

func TestCart_Clear(t *testing.T) {
	cart := NewCart(uuid.New(), uuid.New())
	require.NoError(t, cart.AddItem(uuid.New(), "Mug", decimal.NewFromInt(3), 1))

	cart.Clear()
	assert.True(t, cart.IsEmpty())
	assert.True(t, cart.Total().IsZero())
}
