package event

import (
	"context"
	"testing"

	"github.com/jiffoo/mall/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry_Register(t *testing.T) {
	registry := NewHandlerRegistry()
	specific := &testHandler{}
	wildcard := &testHandler{}

	registry.Register(specific, "OrderPlaced", "OrderPaid")
	registry.Register(wildcard)

	assert.Equal(t, []Handler{specific, wildcard}, registry.GetHandlers("OrderPlaced"))
	assert.Equal(t, []Handler{specific, wildcard}, registry.GetHandlers("OrderPaid"))
	assert.Equal(t, []Handler{wildcard}, registry.GetHandlers("OrderStatusChanged"))
	assert.ElementsMatch(t, []string{"OrderPlaced", "OrderPaid"}, registry.EventTypes())
}

func TestHandlerRegistry_Unregister(t *testing.T) {
	registry := NewHandlerRegistry()
	keep := &testHandler{}
	drop := &testHandler{}
	fn := HandlerFunc(func(context.Context, shared.DomainEvent) error { return nil })

	registry.Register(keep, "OrderPlaced")
	registry.Register(drop, "OrderPlaced", "OrderPaid")
	registry.Register(fn, "OrderPlaced")
	registry.Register(drop)

	registry.Unregister(drop)

	assert.Len(t, registry.GetHandlers("OrderPlaced"), 2, "func handlers survive, they cannot be compared")
	assert.Empty(t, registry.GetHandlers("OrderPaid"))
	assert.Equal(t, []string{"OrderPlaced"}, registry.EventTypes())
}
