package worker

import (
	"context"
	"errors"
	"time"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/logging"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/metrics"
)

// Delivery is one attempt to hand a notification to the sink.
type Delivery struct {
	Notification event.Notification
	Attempt      int
}

type Scheduler interface {
	Schedule(d Delivery, redeliver func(Delivery)) bool
}

// Deliverer forwards notification events from the bus to the sink. Sink
// errors never propagate back to the bus; failed deliveries go to Retry.
type Deliverer struct {
	Sink    contracts.Sink
	Retry   Scheduler
	Logger  logging.Logger
	Metrics *metrics.Counters
	Timeout time.Duration
}

func (d *Deliverer) Handle(evt event.Event) error {
	if evt.Type != event.PaymentVerified && evt.Type != event.PaymentFailed {
		return nil
	}

	n, ok := evt.Payload.(event.Notification)
	if !ok {
		return errors.New("invalid payload for " + string(evt.Type))
	}

	d.Deliver(Delivery{Notification: n, Attempt: 1})
	return nil
}

func (d *Deliverer) Deliver(del Delivery) {
	ctx := context.Background()
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	fields := map[string]any{
		"event-id":  del.Notification.EventID,
		"intent-id": del.Notification.IntentID,
		"kind":      string(del.Notification.Kind),
		"attempt":   del.Attempt,
	}

	err := d.Sink.Notify(ctx, del.Notification)
	if err == nil {
		d.Metrics.IncDelivered()
		d.Logger.Info("notification delivered", fields)
		return
	}

	d.Metrics.IncDeliveryFailed()
	fields["error"] = err.Error()

	if d.Retry == nil || !d.Retry.Schedule(del, d.Deliver) {
		d.Logger.Error("notification dropped", fields)
		return
	}
	d.Logger.Warn("notification delivery failed, retry scheduled", fields)
}
