package event

import (
	"encoding/json"
	"time"
)

// Notification is handed to the notification sink once per terminal
// transition of a payment intent.
type Notification struct {
	EventID  string              `json:"event_id"`
	Kind     Type                `json:"kind"`
	IntentID string              `json:"intent_id"`
	Payload  NotificationPayload `json:"payload"`
}

type NotificationPayload struct {
	AmountMinorUnits int64     `json:"amount"`
	Currency         string    `json:"currency"`
	CustomerID       string    `json:"customer_id,omitempty"`
	PaymentID        string    `json:"payment_id"`
	Timestamp        time.Time `json:"timestamp"`
}

// WebhookPayload passes an accepted gateway webhook through untouched.
type WebhookPayload struct {
	EventID    string          `json:"event_id"`
	Event      string          `json:"event"`
	Body       json.RawMessage `json:"body"`
	ReceivedAt time.Time       `json:"received_at"`
}

// WebhookType maps the gateway's event name to a local event type.
func WebhookType(name string) Type {
	switch name {
	case "payment.captured":
		return WebhookPaymentCaptured
	case "payment.failed":
		return WebhookPaymentFailed
	}
	return WebhookUnrecognized
}
