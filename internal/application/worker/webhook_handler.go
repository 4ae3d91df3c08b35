package worker

import (
	"errors"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/logging"
)

// WebhookHandler records accepted gateway webhooks in the log.
type WebhookHandler struct {
	Logger logging.Logger
}

func (h *WebhookHandler) Handle(evt event.Event) error {
	payload, ok := evt.Payload.(event.WebhookPayload)
	if !ok {
		return errors.New("invalid payload for " + string(evt.Type))
	}

	fields := map[string]any{
		"event":       payload.Event,
		"event-id":    payload.EventID,
		"received-at": payload.ReceivedAt,
	}

	switch evt.Type {
	case event.WebhookPaymentCaptured:
		h.Logger.Info("payment captured", fields)
	case event.WebhookPaymentFailed:
		h.Logger.Warn("payment failed", fields)
	default:
		h.Logger.Info("unhandled webhook event", fields)
	}
	return nil
}
