package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
)

var ErrNoAPIKey = errors.New("sendgrid api key is not configured")

type SendFunc func(ctx context.Context, msg *mail.SGMailV3) (*rest.Response, error)

// SendGridSender delivers plain-text emails through the SendGrid v3 API.
type SendGridSender struct {
	send SendFunc
}

func NewSendGridSender(apiKey string) (*SendGridSender, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client := sendgrid.NewSendClient(apiKey)
	return &SendGridSender{send: client.SendWithContext}, nil
}

// NewSendGridSenderWith lets tests replace the API call.
func NewSendGridSenderWith(send SendFunc) *SendGridSender {
	return &SendGridSender{send: send}
}

func (s *SendGridSender) Send(ctx context.Context, email contracts.Email) error {
	msg := mail.NewSingleEmail(
		mail.NewEmail("", email.From),
		email.Subject,
		mail.NewEmail("", email.To),
		email.Body,
		"",
	)

	resp, err := s.send(ctx, msg)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid: status %d", resp.StatusCode)
	}
	return nil
}
