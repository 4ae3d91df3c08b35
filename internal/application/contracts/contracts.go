package contracts

import (
	"context"
	"errors"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
)

// ErrCollaboratorUnavailable marks a gateway or sink failure the caller may retry.
var ErrCollaboratorUnavailable = errors.New("payment collaborator unavailable")

type EventRecorder interface {
	Record(ctx context.Context, evt event.Event) error
}

type EventPublisher interface {
	Publish(event.Event) error
}

type OrderRequest struct {
	AmountMinorUnits int64
	Currency         string
	Receipt          string
	Notes            map[string]string
}

type Order struct {
	ID        string            `json:"id"`
	Entity    string            `json:"entity"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Receipt   string            `json:"receipt"`
	Status    string            `json:"status"`
	Notes     map[string]string `json:"notes,omitempty"`
	CreatedAt int64             `json:"created_at"`
}

// Gateway creates orders on the hosted payment-collection service.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
}

// Sink delivers notification events out-of-band.
type Sink interface {
	Notify(ctx context.Context, n event.Notification) error
}

// Locker serializes work on a single key.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type Email struct {
	From    string
	To      string
	Subject string
	Body    string
}

// EmailSender sends a single plain-text email.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}
