package outbox

import (
	"context"
	"time"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/logging"
)

type Dispatcher struct {
	Repo         Repository
	EventBus     contracts.EventPublisher
	Logger       logging.Logger
	PollInterval time.Duration
	BatchSize    int
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.DispatchOnce(ctx)
		}
	}
}

// DispatchOnce publishes one batch. Events that fail to publish stay
// unpublished and are retried on the next tick.
func (d *Dispatcher) DispatchOnce(ctx context.Context) int {
	events, err := d.Repo.FindUnpublished(ctx, d.BatchSize)
	if err != nil {
		d.logger().Error("outbox fetch failed", map[string]any{"error": err.Error()})
		return 0
	}

	published := 0
	for _, evt := range events {
		payload, err := event.DecodePayload(evt.Type, evt.Payload)
		if err != nil {
			d.logger().Error("outbox payload undecodable", map[string]any{
				"outbox-id": evt.ID,
				"error":     err.Error(),
			})
			// poison row: mark it so it does not block the batch forever
			_ = d.Repo.MarkPublished(ctx, evt.ID)
			continue
		}

		if err := d.EventBus.Publish(event.Event{Type: evt.Type, Payload: payload}); err != nil {
			d.logger().Warn("outbox publish failed", map[string]any{
				"outbox-id":  evt.ID,
				"event-type": string(evt.Type),
				"error":      err.Error(),
			})
			continue
		}

		if err := d.Repo.MarkPublished(ctx, evt.ID); err != nil {
			d.logger().Error("outbox mark published failed", map[string]any{
				"outbox-id": evt.ID,
				"error":     err.Error(),
			})
			continue
		}
		published++
	}

	return published
}

func (d *Dispatcher) logger() logging.Logger {
	if d.Logger == nil {
		return logging.Nop{}
	}
	return d.Logger
}
