package intent

import (
	"context"
	"time"
)

// Repository is the IntentStore the manager and gate depend on.
type Repository interface {
	Save(ctx context.Context, p *PaymentIntent) error
	FindByID(ctx context.Context, id string) (*PaymentIntent, error)
	FindByExternalOrderID(ctx context.Context, externalOrderID string) (*PaymentIntent, error)
	// AttachExternalOrder sets the order id only while none is recorded.
	AttachExternalOrder(ctx context.Context, id, externalOrderID string) error
	// Resolve is a compare-and-set from StateCreated; it returns
	// ErrAlreadyResolved when the stored intent is already terminal.
	Resolve(ctx context.Context, id string, to State, externalPaymentID string, at time.Time) error
	List(ctx context.Context) ([]*PaymentIntent, error)
}
