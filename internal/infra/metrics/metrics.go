package metrics

import "sync/atomic"

type Counters struct {
	IntentsCreated         uint64
	VerificationsSucceeded uint64
	VerificationsFailed    uint64
	VerificationReplays    uint64
	WebhooksAccepted       uint64
	WebhooksRejected       uint64
	EnqueueFailures        uint64
	NotificationsDelivered uint64
	NotificationsFailed    uint64
}

func (c *Counters) IncIntentsCreated() {
	atomic.AddUint64(&c.IntentsCreated, 1)
}

func (c *Counters) IncVerified() {
	atomic.AddUint64(&c.VerificationsSucceeded, 1)
}

func (c *Counters) IncVerificationFailed() {
	atomic.AddUint64(&c.VerificationsFailed, 1)
}

func (c *Counters) IncReplay() {
	atomic.AddUint64(&c.VerificationReplays, 1)
}

func (c *Counters) IncWebhookAccepted() {
	atomic.AddUint64(&c.WebhooksAccepted, 1)
}

func (c *Counters) IncWebhookRejected() {
	atomic.AddUint64(&c.WebhooksRejected, 1)
}

func (c *Counters) IncEnqueueFailure() {
	atomic.AddUint64(&c.EnqueueFailures, 1)
}

func (c *Counters) IncDelivered() {
	atomic.AddUint64(&c.NotificationsDelivered, 1)
}

func (c *Counters) IncDeliveryFailed() {
	atomic.AddUint64(&c.NotificationsFailed, 1)
}

// Snapshot reads every counter atomically.
func (c *Counters) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"intents_created":         atomic.LoadUint64(&c.IntentsCreated),
		"verifications_succeeded": atomic.LoadUint64(&c.VerificationsSucceeded),
		"verifications_failed":    atomic.LoadUint64(&c.VerificationsFailed),
		"verification_replays":    atomic.LoadUint64(&c.VerificationReplays),
		"webhooks_accepted":       atomic.LoadUint64(&c.WebhooksAccepted),
		"webhooks_rejected":       atomic.LoadUint64(&c.WebhooksRejected),
		"enqueue_failures":        atomic.LoadUint64(&c.EnqueueFailures),
		"notifications_delivered": atomic.LoadUint64(&c.NotificationsDelivered),
		"notifications_failed":    atomic.LoadUint64(&c.NotificationsFailed),
	}
}
