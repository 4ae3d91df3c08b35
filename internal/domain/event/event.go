package event

import (
	"encoding/json"
	"fmt"
)

type Type string

const (
	PaymentVerified Type = "payment_verified"
	PaymentFailed   Type = "payment_failed"

	WebhookPaymentCaptured Type = "webhook.payment.captured"
	WebhookPaymentFailed   Type = "webhook.payment.failed"
	WebhookUnrecognized    Type = "webhook.unrecognized"
)

type Event struct {
	Type    Type
	Payload any
}

// NotificationTypes are the event types delivered to the notification sink.
var NotificationTypes = []Type{PaymentVerified, PaymentFailed}

// WebhookTypes are the event types produced by accepted gateway webhooks.
var WebhookTypes = []Type{WebhookPaymentCaptured, WebhookPaymentFailed, WebhookUnrecognized}

// DecodePayload restores the typed payload for a serialized event.
func DecodePayload(typ Type, data []byte) (any, error) {
	switch typ {
	case PaymentVerified, PaymentFailed:
		var n Notification
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", typ, err)
		}
		return n, nil
	case WebhookPaymentCaptured, WebhookPaymentFailed, WebhookUnrecognized:
		var w WebhookPayload
		if err := json.Unmarshal(data, &w); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", typ, err)
		}
		return w, nil
	}
	return nil, fmt.Errorf("unknown event type %q", typ)
}
