package event

import (
	"context"
	"sync"

	"github.com/jiffoo/mall/internal/domain/shared"
)

// Handler reacts to published domain events
type Handler interface {
	Handle(ctx context.Context, event shared.DomainEvent) error
}

// HandlerFunc adapts a function to Handler. Function values are not
// comparable, so handlers registered this way cannot be unregistered.
type HandlerFunc func(ctx context.Context, event shared.DomainEvent) error

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, event shared.DomainEvent) error {
	return f(ctx, event)
}

// HandlerRegistry manages event handler registrations
type HandlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler // eventType -> handlers
	wildcard []Handler
}

// NewHandlerRegistry creates a new handler registry
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers: make(map[string][]Handler),
	}
}

// Register adds a handler for specific event types.
// With no event types the handler receives all events.
func (r *HandlerRegistry) Register(handler Handler, eventTypes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(eventTypes) == 0 {
		r.wildcard = append(r.wildcard, handler)
		return
	}
	for _, eventType := range eventTypes {
		r.handlers[eventType] = append(r.handlers[eventType], handler)
	}
}

// Unregister removes a handler from all event types
func (r *HandlerRegistry) Unregister(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.wildcard = removeHandler(r.wildcard, handler)
	for eventType, handlers := range r.handlers {
		r.handlers[eventType] = removeHandler(handlers, handler)
		if len(r.handlers[eventType]) == 0 {
			delete(r.handlers, eventType)
		}
	}
}

// GetHandlers returns the type-specific handlers followed by wildcard ones
func (r *HandlerRegistry) GetHandlers(eventType string) []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()

	typeHandlers := r.handlers[eventType]
	result := make([]Handler, 0, len(typeHandlers)+len(r.wildcard))
	result = append(result, typeHandlers...)
	result = append(result, r.wildcard...)
	return result
}

// EventTypes returns the event types with at least one dedicated handler
func (r *HandlerRegistry) EventTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	return types
}

func removeHandler(handlers []Handler, target Handler) []Handler {
	result := make([]Handler, 0, len(handlers))
	for _, h := range handlers {
		if !sameHandler(h, target) {
			result = append(result, h)
		}
	}
	return result
}

// sameHandler compares handlers without panicking on uncomparable ones
func sameHandler(a, b Handler) (same bool) {
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}
