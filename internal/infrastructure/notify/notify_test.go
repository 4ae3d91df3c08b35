package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/logging"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/notify"
)

func TestSendGridSender_BuildsSingleEmail(t *testing.T) {
	var got *mail.SGMailV3
	sender := notify.NewSendGridSenderWith(func(_ context.Context, msg *mail.SGMailV3) (*rest.Response, error) {
		got = msg
		return &rest.Response{StatusCode: 202}, nil
	})

	err := sender.Send(context.Background(), contracts.Email{
		From:    "shop@example.com",
		To:      "admin@example.com",
		Subject: "Payment received",
		Body:    "pay_123",
	})
	require.NoError(t, err)

	require.Equal(t, "shop@example.com", got.From.Address)
	require.Equal(t, "Payment received", got.Subject)
	require.Len(t, got.Personalizations, 1)
	require.Equal(t, "admin@example.com", got.Personalizations[0].To[0].Address)
	require.Equal(t, "text/plain", got.Content[0].Type)
	require.Equal(t, "pay_123", got.Content[0].Value)
}

func TestSendGridSender_Errors(t *testing.T) {
	rejected := notify.NewSendGridSenderWith(func(context.Context, *mail.SGMailV3) (*rest.Response, error) {
		return &rest.Response{StatusCode: 401, Body: "unauthorized"}, nil
	})
	require.ErrorContains(t, rejected.Send(context.Background(), contracts.Email{}), "status 401")

	broken := notify.NewSendGridSenderWith(func(context.Context, *mail.SGMailV3) (*rest.Response, error) {
		return nil, errors.New("dial tcp")
	})
	require.ErrorContains(t, broken.Send(context.Background(), contracts.Email{}), "dial tcp")

	_, err := notify.NewSendGridSender("")
	require.ErrorIs(t, err, notify.ErrNoAPIKey)
}

type sinkFunc func(context.Context, event.Notification) error

func (f sinkFunc) Notify(ctx context.Context, n event.Notification) error { return f(ctx, n) }

func TestFanout_NotifiesAllAndJoinsErrors(t *testing.T) {
	var calls []string
	boom := errors.New("boom")

	fanout := notify.Fanout{
		sinkFunc(func(context.Context, event.Notification) error { calls = append(calls, "a"); return boom }),
		notify.LogSink{Logger: logging.Nop{}},
		sinkFunc(func(context.Context, event.Notification) error { calls = append(calls, "c"); return nil }),
	}

	err := fanout.Notify(context.Background(), event.Notification{EventID: "e1"})
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"a", "c"}, calls)
}
