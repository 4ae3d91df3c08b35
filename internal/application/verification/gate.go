package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/intent"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/logging"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/metrics"
)

var (
	ErrMissingSecret    = errors.New("verification secret is not configured")
	ErrMalformedWebhook = errors.New("webhook body is not a JSON object")
)

type Outcome string

const (
	OutcomeVerified Outcome = "verified"
	OutcomeFailed   Outcome = "failed"
)

type Result struct {
	IntentID   string    `json:"intent_id"`
	Outcome    Outcome   `json:"outcome"`
	PaymentID  string    `json:"payment_id"`
	ResolvedAt time.Time `json:"resolved_at"`
}

func (r Result) Verified() bool {
	return r.Outcome == OutcomeVerified
}

type WebhookOutcome string

const (
	WebhookAccepted WebhookOutcome = "accepted"
	WebhookRejected WebhookOutcome = "rejected"
)

type WebhookResult struct {
	Outcome WebhookOutcome
	Event   string
	Type    event.Type
	EventID string
}

// Secrets are copied at construction and never exposed again.
type Secrets struct {
	KeySecret     string
	WebhookSecret string
}

type Gate struct {
	repo          intent.Repository
	recorder      contracts.EventRecorder
	locker        contracts.Locker
	keySecret     []byte
	webhookSecret []byte

	Logger  logging.Logger
	Metrics *metrics.Counters
	Now     func() time.Time
}

func NewGate(repo intent.Repository, recorder contracts.EventRecorder, locker contracts.Locker, secrets Secrets) (*Gate, error) {
	if secrets.KeySecret == "" || secrets.WebhookSecret == "" {
		return nil, ErrMissingSecret
	}
	if locker == nil {
		locker = NewKeyedMutex()
	}

	return &Gate{
		repo:          repo,
		recorder:      recorder,
		locker:        locker,
		keySecret:     []byte(secrets.KeySecret),
		webhookSecret: []byte(secrets.WebhookSecret),
		Logger:        logging.Nop{},
		Metrics:       &metrics.Counters{},
	}, nil
}

// Verify checks a payment assertion against the intent it claims to settle.
// It is effective at most once per intent: once the intent is terminal the
// recorded result is returned with intent.ErrAlreadyResolved.
func (g *Gate) Verify(ctx context.Context, intentID, externalPaymentID, externalOrderID, suppliedSignature string) (Result, error) {
	unlock, err := g.locker.Lock(ctx, "intent:"+intentID)
	if err != nil {
		return Result{}, fmt.Errorf("lock intent %s: %w", intentID, err)
	}
	defer unlock()

	p, err := g.repo.FindByID(ctx, intentID)
	if err != nil {
		return Result{}, err
	}

	if p.State.Terminal() {
		return g.replay(p), intent.ErrAlreadyResolved
	}

	if p.ExternalOrderID == "" {
		return Result{}, fmt.Errorf("%w: no order attached to intent %s", intent.ErrOrderMismatch, intentID)
	}
	if externalOrderID != p.ExternalOrderID {
		return Result{}, intent.ErrOrderMismatch
	}

	to, kind := intent.StateFailed, event.PaymentFailed
	if ValidPaymentSignature(g.keySecret, externalOrderID, externalPaymentID, suppliedSignature) {
		to, kind = intent.StateVerified, event.PaymentVerified
	}

	now := g.now()
	if err := g.repo.Resolve(ctx, p.ID, to, externalPaymentID, now); err != nil {
		if !errors.Is(err, intent.ErrAlreadyResolved) {
			return Result{}, fmt.Errorf("resolve intent %s: %w", intentID, err)
		}
		// another process won the compare-and-set
		current, ferr := g.repo.FindByID(ctx, intentID)
		if ferr != nil {
			return Result{}, ferr
		}
		return g.replay(current), intent.ErrAlreadyResolved
	}
	if err := p.Resolve(to, externalPaymentID, now); err != nil {
		return Result{}, err
	}

	fields := map[string]any{
		"intent-id":  p.ID,
		"order-id":   externalOrderID,
		"payment-id": externalPaymentID,
	}
	if to == intent.StateVerified {
		g.Metrics.IncVerified()
		g.Logger.Info("payment verified", fields)
	} else {
		g.Metrics.IncVerificationFailed()
		g.Logger.Warn("payment signature mismatch", fields)
	}

	g.emit(ctx, p, kind)

	return resultOf(p), nil
}

// VerifyWebhook authenticates the exact received bytes. A rejected webhook
// changes nothing and records nothing.
func (g *Gate) VerifyWebhook(ctx context.Context, rawBody []byte, suppliedSignature string) (WebhookResult, error) {
	if !ValidWebhookSignature(g.webhookSecret, rawBody, suppliedSignature) {
		g.Metrics.IncWebhookRejected()
		g.Logger.Warn("webhook signature mismatch", map[string]any{"body-bytes": len(rawBody)})
		return WebhookResult{Outcome: WebhookRejected}, nil
	}

	var envelope struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return WebhookResult{}, fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}

	typ := event.WebhookType(envelope.Event)
	payload := event.WebhookPayload{
		EventID:    uuid.NewString(),
		Event:      envelope.Event,
		Body:       json.RawMessage(slices.Clone(rawBody)),
		ReceivedAt: g.now().UTC(),
	}

	if err := g.recorder.Record(ctx, event.Event{Type: typ, Payload: payload}); err != nil {
		return WebhookResult{}, fmt.Errorf("record webhook %s: %w", envelope.Event, err)
	}

	g.Metrics.IncWebhookAccepted()
	g.Logger.Info("webhook accepted", map[string]any{
		"event":    envelope.Event,
		"event-id": payload.EventID,
	})

	return WebhookResult{
		Outcome: WebhookAccepted,
		Event:   envelope.Event,
		Type:    typ,
		EventID: payload.EventID,
	}, nil
}

func (g *Gate) replay(p *intent.PaymentIntent) Result {
	g.Metrics.IncReplay()
	g.Logger.Info("verification replay ignored", map[string]any{
		"intent-id": p.ID,
		"state":     string(p.State),
	})
	return resultOf(p)
}

// emit enqueues the notification. The intent is already resolved, so an
// enqueue failure is reported but does not change the result.
func (g *Gate) emit(ctx context.Context, p *intent.PaymentIntent, kind event.Type) {
	n := event.Notification{
		EventID:  uuid.NewString(),
		Kind:     kind,
		IntentID: p.ID,
		Payload: event.NotificationPayload{
			AmountMinorUnits: p.AmountMinorUnits,
			Currency:         p.Currency,
			CustomerID:       p.CustomerID(),
			PaymentID:        p.ExternalPaymentID,
			Timestamp:        *p.ResolvedAt,
		},
	}

	if err := g.recorder.Record(context.WithoutCancel(ctx), event.Event{Type: kind, Payload: n}); err != nil {
		g.Metrics.IncEnqueueFailure()
		g.Logger.Error("notification enqueue failed", map[string]any{
			"intent-id": p.ID,
			"event-id":  n.EventID,
			"kind":      string(kind),
			"error":     err.Error(),
		})
	}
}

func (g *Gate) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func resultOf(p *intent.PaymentIntent) Result {
	r := Result{
		IntentID:  p.ID,
		PaymentID: p.ExternalPaymentID,
		Outcome:   OutcomeFailed,
	}
	if p.State == intent.StateVerified {
		r.Outcome = OutcomeVerified
	}
	if p.ResolvedAt != nil {
		r.ResolvedAt = *p.ResolvedAt
	}
	return r
}
