package eventbus

import (
	"errors"
	"sync"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
)

type HandlerFunc func(event.Event) error

type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[event.Type][]HandlerFunc
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[event.Type][]HandlerFunc),
	}
}

func (b *InMemoryBus) Subscribe(eventType event.Type, handler HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

func (b *InMemoryBus) SubscribeAll(types []event.Type, handler HandlerFunc) {
	for _, t := range types {
		b.Subscribe(t, handler)
	}
}

// Publish runs every handler for the event type. One failing handler does not
// stop the others; their errors are joined.
func (b *InMemoryBus) Publish(evt event.Event) error {
	b.mu.RLock()
	handlers := append([]HandlerFunc(nil), b.handlers[evt.Type]...)
	b.mu.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(evt); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
