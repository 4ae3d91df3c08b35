package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/outbox"
)

type fakeBus struct {
	published []event.Event
	fail      bool
}

func (f *fakeBus) Publish(evt event.Event) error {
	if f.fail {
		return errors.New("bus down")
	}
	f.published = append(f.published, evt)
	return nil
}

func notificationPayload(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(event.Notification{
		EventID:  "n-1",
		Kind:     event.PaymentVerified,
		IntentID: "int-1",
		Payload:  event.NotificationPayload{AmountMinorUnits: 16599, Currency: "INR", PaymentID: "pay_123"},
	})
	require.NoError(t, err)
	return data
}

func TestDispatcher_ShouldPublishAndMarkEvent(t *testing.T) {
	ctx := context.Background()
	repo := outbox.NewSQLiteRepository(setupTestDB(t))

	bus := &fakeBus{}

	dispatcher := &outbox.Dispatcher{
		Repo:         repo,
		EventBus:     bus,
		PollInterval: time.Millisecond,
		BatchSize:    10,
	}

	err := repo.Save(ctx, outbox.OutboxEvent{
		ID:        "evt-1",
		Type:      event.PaymentVerified,
		Payload:   notificationPayload(t),
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, 1, dispatcher.DispatchOnce(ctx))

	if len(bus.published) != 1 {
		t.Fatalf("expected 1 event published, got %d", len(bus.published))
	}

	n, ok := bus.published[0].Payload.(event.Notification)
	require.True(t, ok, "payload should be decoded into a typed notification")
	require.Equal(t, "pay_123", n.Payload.PaymentID)

	events, _ := repo.FindUnpublished(ctx, 10)
	if len(events) != 0 {
		t.Fatalf("expected no unpublished events")
	}
}

func TestDispatcher_ShouldKeepEvent_WhenBusFails(t *testing.T) {
	ctx := context.Background()
	repo := outbox.NewSQLiteRepository(setupTestDB(t))
	bus := &fakeBus{fail: true}

	dispatcher := &outbox.Dispatcher{Repo: repo, EventBus: bus, BatchSize: 10}

	require.NoError(t, repo.Save(ctx, outbox.OutboxEvent{
		ID:        "evt-1",
		Type:      event.PaymentVerified,
		Payload:   notificationPayload(t),
		CreatedAt: time.Now(),
	}))

	require.Equal(t, 0, dispatcher.DispatchOnce(ctx))

	events, err := repo.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	bus.fail = false
	require.Equal(t, 1, dispatcher.DispatchOnce(ctx))
	require.Len(t, bus.published, 1)
}

func TestDispatcher_ShouldSkipPoisonEvents(t *testing.T) {
	ctx := context.Background()
	repo := outbox.NewMemoryRepository()
	bus := &fakeBus{}
	dispatcher := &outbox.Dispatcher{Repo: repo, EventBus: bus, BatchSize: 10}

	require.NoError(t, repo.Save(ctx, outbox.OutboxEvent{ID: "bad", Type: event.PaymentVerified, Payload: []byte(`not json`)}))
	require.NoError(t, repo.Save(ctx, outbox.OutboxEvent{ID: "good", Type: event.PaymentVerified, Payload: notificationPayload(t)}))

	require.Equal(t, 1, dispatcher.DispatchOnce(ctx))
	require.Len(t, bus.published, 1)

	events, err := repo.FindUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, events)
}

func TestDispatcher_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	repo := outbox.NewMemoryRepository()
	bus := &fakeBus{}
	dispatcher := &outbox.Dispatcher{Repo: repo, EventBus: bus, PollInterval: time.Millisecond, BatchSize: 10}

	done := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after cancel")
	}
}
