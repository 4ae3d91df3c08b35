package outbox

import (
	"context"
	"time"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
)

type OutboxEvent struct {
	ID        string
	Type      event.Type
	Payload   []byte
	Published bool
	CreatedAt time.Time
}

type Repository interface {
	Save(context.Context, OutboxEvent) error
	FindUnpublished(context.Context, int) ([]OutboxEvent, error)
	MarkPublished(context.Context, string) error
}
