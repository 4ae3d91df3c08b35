package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/logging"
)

var ErrInvalidEmail = errors.New("email requires recipient, subject and body")

// Mailer sends admin emails: manual ones from the dashboard and one per
// payment notification when AdminEmail is set.
type Mailer struct {
	Sender     contracts.EmailSender
	From       string
	AdminEmail string
	Logger     logging.Logger
}

func (m *Mailer) SendManual(ctx context.Context, to, subject, body string) error {
	to, subject = strings.TrimSpace(to), strings.TrimSpace(subject)
	if to == "" || subject == "" || strings.TrimSpace(body) == "" {
		return ErrInvalidEmail
	}

	err := m.Sender.Send(ctx, contracts.Email{From: m.From, To: to, Subject: subject, Body: body})
	if err != nil {
		m.Logger.Error("manual email failed", map[string]any{"to": to, "error": err.Error()})
		return fmt.Errorf("%w: %v", contracts.ErrCollaboratorUnavailable, err)
	}

	m.Logger.Info("manual email sent", map[string]any{"to": to})
	return nil
}

// Notify emails the admin about a terminal payment transition.
func (m *Mailer) Notify(ctx context.Context, n event.Notification) error {
	if m.AdminEmail == "" {
		return nil
	}

	item := fromEvent(n)
	email := contracts.Email{
		From:    m.From,
		To:      m.AdminEmail,
		Subject: item.Title,
		Body:    item.Message + "\nIntent: " + n.IntentID,
	}
	if err := m.Sender.Send(ctx, email); err != nil {
		return fmt.Errorf("%w: %v", contracts.ErrCollaboratorUnavailable, err)
	}
	return nil
}
