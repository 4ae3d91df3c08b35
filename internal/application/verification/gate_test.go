package verification_test

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/verification"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/intent"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/persistence/inmemory"
)

const (
	keySecret     = "rzp_test_key_secret"
	webhookSecret = "rzp_test_webhook_secret"
)

type fakeRecorder struct {
	mu     sync.Mutex
	events []event.Event
	fail   bool
}

func (f *fakeRecorder) Record(_ context.Context, evt event.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("outbox unavailable")
	}
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeRecorder) recorded() []event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.Event(nil), f.events...)
}

type fixture struct {
	repo     *inmemory.IntentRepository
	recorder *fakeRecorder
	gate     *verification.Gate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := inmemory.NewIntentRepository()
	recorder := &fakeRecorder{}

	gate, err := verification.NewGate(repo, recorder, nil, verification.Secrets{
		KeySecret:     keySecret,
		WebhookSecret: webhookSecret,
	})
	require.NoError(t, err)

	return &fixture{repo: repo, recorder: recorder, gate: gate}
}

// seed creates the 16599 INR intent bound to order_abc.
func (f *fixture) seed(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	p, err := intent.New("int-1", 16599, "INR", map[string]string{intent.NoteCustomerID: "john@example.com"}, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.repo.Save(ctx, p))
	require.NoError(t, f.repo.AttachExternalOrder(ctx, p.ID, "order_abc"))
	return p.ID
}

func validSignature() string {
	return verification.PaymentSignature([]byte(keySecret), "order_abc", "pay_123")
}

func randomHex(t *testing.T) string {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	require.NoError(t, err)
	return hex.EncodeToString(b)
}

func TestNewGate_RequiresSecrets(t *testing.T) {
	repo := inmemory.NewIntentRepository()

	_, err := verification.NewGate(repo, &fakeRecorder{}, nil, verification.Secrets{KeySecret: "k"})
	require.ErrorIs(t, err, verification.ErrMissingSecret)

	_, err = verification.NewGate(repo, &fakeRecorder{}, nil, verification.Secrets{WebhookSecret: "w"})
	require.ErrorIs(t, err, verification.ErrMissingSecret)
}

func TestVerify_ValidAssertion_Verifies(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t)

	res, err := f.gate.Verify(context.Background(), id, "pay_123", "order_abc", validSignature())

	require.NoError(t, err)
	require.Equal(t, verification.OutcomeVerified, res.Outcome)
	require.True(t, res.Verified())

	p, err := f.repo.FindByID(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, intent.StateVerified, p.State)
	require.Equal(t, "pay_123", p.ExternalPaymentID)
	require.NotNil(t, p.ResolvedAt)

	events := f.recorder.recorded()
	require.Len(t, events, 1)
	require.Equal(t, event.PaymentVerified, events[0].Type)

	n := events[0].Payload.(event.Notification)
	require.Equal(t, event.PaymentVerified, n.Kind)
	require.Equal(t, id, n.IntentID)
	require.Equal(t, int64(16599), n.Payload.AmountMinorUnits)
	require.Equal(t, "INR", n.Payload.Currency)
	require.Equal(t, "john@example.com", n.Payload.CustomerID)
	require.Equal(t, "pay_123", n.Payload.PaymentID)
	require.NotEmpty(t, n.EventID)
}

func TestVerify_ReplayEmitsExactlyOneEvent(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t)
	ctx := context.Background()

	first, err := f.gate.Verify(ctx, id, "pay_123", "order_abc", validSignature())
	require.NoError(t, err)

	second, err := f.gate.Verify(ctx, id, "pay_123", "order_abc", validSignature())
	require.ErrorIs(t, err, intent.ErrAlreadyResolved)
	require.Equal(t, verification.OutcomeVerified, second.Outcome)
	require.Equal(t, first.ResolvedAt, second.ResolvedAt)

	require.Len(t, f.recorder.recorded(), 1)
	require.Equal(t, uint64(1), f.gate.Metrics.VerificationReplays)
}

func TestVerify_RandomSignature_FailsClosed(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t)
	ctx := context.Background()

	res, err := f.gate.Verify(ctx, id, "pay_123", "order_abc", randomHex(t))
	require.NoError(t, err)
	require.Equal(t, verification.OutcomeFailed, res.Outcome)

	p, err := f.repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, intent.StateFailed, p.State)

	// a correct signature afterwards does not re-evaluate
	res, err = f.gate.Verify(ctx, id, "pay_123", "order_abc", validSignature())
	require.ErrorIs(t, err, intent.ErrAlreadyResolved)
	require.Equal(t, verification.OutcomeFailed, res.Outcome)

	events := f.recorder.recorded()
	require.Len(t, events, 1)
	require.Equal(t, event.PaymentFailed, events[0].Type)
}

func TestVerify_UnknownIntent(t *testing.T) {
	f := newFixture(t)

	_, err := f.gate.Verify(context.Background(), "never-created", "pay_123", "order_abc", validSignature())

	require.ErrorIs(t, err, intent.ErrNotFound)
	require.Empty(t, f.recorder.recorded())
}

func TestVerify_OrderMismatch_LeavesIntentCreated(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t)
	ctx := context.Background()

	sig := verification.PaymentSignature([]byte(keySecret), "order_other", "pay_123")
	_, err := f.gate.Verify(ctx, id, "pay_123", "order_other", sig)
	require.ErrorIs(t, err, intent.ErrOrderMismatch)

	p, err := f.repo.FindByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, intent.StateCreated, p.State)
	require.Empty(t, f.recorder.recorded())
}

func TestVerify_RequiresAttachedOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := intent.New("int-bare", 500, "INR", nil, time.Now())
	require.NoError(t, err)
	require.NoError(t, f.repo.Save(ctx, p))

	_, err = f.gate.Verify(ctx, p.ID, "pay_123", "", verification.PaymentSignature([]byte(keySecret), "", "pay_123"))
	require.ErrorIs(t, err, intent.ErrOrderMismatch)
}

func TestVerify_EnqueueFailureDoesNotChangeResult(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t)
	f.recorder.fail = true

	res, err := f.gate.Verify(context.Background(), id, "pay_123", "order_abc", validSignature())

	require.NoError(t, err)
	require.True(t, res.Verified())
	require.Equal(t, uint64(1), f.gate.Metrics.EnqueueFailures)
}

func TestVerify_ConcurrentAssertionsResolveOnce(t *testing.T) {
	f := newFixture(t)
	id := f.seed(t)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		resolved int
		replays  int
	)
	for iter := 0; iter < 20; iter++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.gate.Verify(context.Background(), id, "pay_123", "order_abc", validSignature())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				resolved++
			case errors.Is(err, intent.ErrAlreadyResolved):
				replays++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, resolved)
	require.Equal(t, 19, replays)
	require.Len(t, f.recorder.recorded(), 1)
}

func TestVerifyWebhook_AcceptsExactBody(t *testing.T) {
	f := newFixture(t)
	raw := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_123","amount":16599}}}}`)
	sig := verification.WebhookSignature([]byte(webhookSecret), raw)

	res, err := f.gate.VerifyWebhook(context.Background(), raw, sig)

	require.NoError(t, err)
	require.Equal(t, verification.WebhookAccepted, res.Outcome)
	require.Equal(t, event.WebhookPaymentCaptured, res.Type)

	events := f.recorder.recorded()
	require.Len(t, events, 1)
	payload := events[0].Payload.(event.WebhookPayload)
	require.Equal(t, "payment.captured", payload.Event)
	require.JSONEq(t, string(raw), string(payload.Body))
}

func TestVerifyWebhook_ReserializedBodyIsRejected(t *testing.T) {
	f := newFixture(t)
	raw := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_123"}}}}`)
	sig := verification.WebhookSignature([]byte(webhookSecret), raw)
	reserialized := []byte(`{"payload": {"payment": {"entity": {"id": "pay_123"}}}, "event": "payment.captured"}`)

	res, err := f.gate.VerifyWebhook(context.Background(), reserialized, sig)

	require.NoError(t, err)
	require.Equal(t, verification.WebhookRejected, res.Outcome)
	require.Empty(t, f.recorder.recorded())
}

func TestVerifyWebhook_KindRouting(t *testing.T) {
	cases := map[string]event.Type{
		`{"event":"payment.failed"}`:          event.WebhookPaymentFailed,
		`{"event":"refund.processed"}`:        event.WebhookUnrecognized,
		`{"payload":{},"no_event_field":true}`: event.WebhookUnrecognized,
	}

	for body, want := range cases {
		f := newFixture(t)
		raw := []byte(body)

		res, err := f.gate.VerifyWebhook(context.Background(), raw, verification.WebhookSignature([]byte(webhookSecret), raw))
		require.NoError(t, err, body)
		require.Equal(t, verification.WebhookAccepted, res.Outcome, body)
		require.Equal(t, want, res.Type, body)
	}
}

func TestVerifyWebhook_SignedGarbageIsProcessingError(t *testing.T) {
	f := newFixture(t)
	raw := []byte(`not-json`)

	_, err := f.gate.VerifyWebhook(context.Background(), raw, verification.WebhookSignature([]byte(webhookSecret), raw))

	require.ErrorIs(t, err, verification.ErrMalformedWebhook)
	require.Empty(t, f.recorder.recorded())
}

func TestVerifyWebhook_PaymentSecretDoesNotSignWebhooks(t *testing.T) {
	f := newFixture(t)
	raw := []byte(`{"event":"payment.captured"}`)

	res, err := f.gate.VerifyWebhook(context.Background(), raw, verification.WebhookSignature([]byte(keySecret), raw))

	require.NoError(t, err)
	require.Equal(t, verification.WebhookRejected, res.Outcome)
}
