package notify

import (
	"context"
	"errors"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/logging"
)

type LogSink struct {
	Logger logging.Logger
}

func (s LogSink) Notify(_ context.Context, n event.Notification) error {
	s.Logger.Info("payment notification", map[string]any{
		"event-id":    n.EventID,
		"kind":        string(n.Kind),
		"intent-id":   n.IntentID,
		"payment-id":  n.Payload.PaymentID,
		"customer-id": n.Payload.CustomerID,
		"amount":      n.Payload.AmountMinorUnits,
		"currency":    n.Payload.Currency,
	})
	return nil
}

// Fanout notifies every sink and joins their errors.
// A retried notification reaches sinks that already succeeded again; sinks
// are expected to tolerate duplicates by event id.
type Fanout []contracts.Sink

func (f Fanout) Notify(ctx context.Context, n event.Notification) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSender stands in for an email provider when none is configured.
type LogSender struct {
	Logger logging.Logger
}

func (s LogSender) Send(_ context.Context, email contracts.Email) error {
	s.Logger.Warn("email provider not configured, email logged only", map[string]any{
		"to":      email.To,
		"subject": email.Subject,
	})
	return nil
}
