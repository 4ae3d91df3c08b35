package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/intent"
)

type IntentRepository struct {
	mu      sync.RWMutex
	intents map[string]*intent.PaymentIntent
	byOrder map[string]string
}

func NewIntentRepository() *IntentRepository {
	return &IntentRepository{
		intents: make(map[string]*intent.PaymentIntent),
		byOrder: make(map[string]string),
	}
}

func (r *IntentRepository) Save(_ context.Context, p *intent.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.intents[p.ID]; exists {
		return fmt.Errorf("payment intent %s already exists", p.ID)
	}

	r.intents[p.ID] = p.Clone()
	if p.ExternalOrderID != "" {
		r.byOrder[p.ExternalOrderID] = p.ID
	}
	return nil
}

func (r *IntentRepository) FindByID(_ context.Context, id string) (*intent.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.intents[id]
	if !ok {
		return nil, intent.ErrNotFound
	}
	return p.Clone(), nil
}

func (r *IntentRepository) FindByExternalOrderID(_ context.Context, externalOrderID string) (*intent.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOrder[externalOrderID]
	if !ok {
		return nil, intent.ErrNotFound
	}
	return r.intents[id].Clone(), nil
}

func (r *IntentRepository) AttachExternalOrder(_ context.Context, id, externalOrderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.intents[id]
	if !ok {
		return intent.ErrNotFound
	}
	if owner, taken := r.byOrder[externalOrderID]; taken && owner != id {
		return intent.ErrOrderIDConflict
	}
	if err := p.AttachOrder(externalOrderID); err != nil {
		return err
	}

	r.byOrder[externalOrderID] = id
	return nil
}

func (r *IntentRepository) Resolve(_ context.Context, id string, to intent.State, externalPaymentID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.intents[id]
	if !ok {
		return intent.ErrNotFound
	}
	return p.Resolve(to, externalPaymentID, at)
}

// List returns every intent, newest first.
func (r *IntentRepository) List(_ context.Context) ([]*intent.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*intent.PaymentIntent, 0, len(r.intents))
	for _, p := range r.intents {
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, func(a, b *intent.PaymentIntent) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}
