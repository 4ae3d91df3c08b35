package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/event"
)

const DefaultCapacity = 50

var ErrNotificationNotFound = errors.New("notification not found")

type AdminNotification struct {
	ID         string     `json:"id"`
	Kind       event.Type `json:"kind"`
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	IntentID   string     `json:"intent_id"`
	PaymentID  string     `json:"payment_id"`
	CustomerID string     `json:"customer_id,omitempty"`
	Amount     int64      `json:"amount"`
	Currency   string     `json:"currency"`
	CreatedAt  time.Time  `json:"created_at"`
	Read       bool       `json:"read"`
}

// Inbox keeps the newest admin notifications in memory, newest first.
type Inbox struct {
	mu       sync.RWMutex
	items    []AdminNotification
	capacity int
}

func NewInbox(capacity int) *Inbox {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Inbox{capacity: capacity}
}

func (i *Inbox) Notify(_ context.Context, n event.Notification) error {
	item := fromEvent(n)

	i.mu.Lock()
	defer i.mu.Unlock()

	for _, existing := range i.items {
		if existing.ID == item.ID {
			return nil
		}
	}

	i.items = append([]AdminNotification{item}, i.items...)
	if len(i.items) > i.capacity {
		i.items = i.items[:i.capacity]
	}
	return nil
}

func (i *Inbox) List() []AdminNotification {
	i.mu.RLock()
	defer i.mu.RUnlock()

	return append([]AdminNotification(nil), i.items...)
}

func (i *Inbox) MarkRead(id string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	for idx := range i.items {
		if i.items[idx].ID == id {
			i.items[idx].Read = true
			return nil
		}
	}
	return ErrNotificationNotFound
}

func (i *Inbox) Unread() int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	count := 0
	for _, item := range i.items {
		if !item.Read {
			count++
		}
	}
	return count
}

func fromEvent(n event.Notification) AdminNotification {
	item := AdminNotification{
		ID:         n.EventID,
		Kind:       n.Kind,
		IntentID:   n.IntentID,
		PaymentID:  n.Payload.PaymentID,
		CustomerID: n.Payload.CustomerID,
		Amount:     n.Payload.AmountMinorUnits,
		Currency:   n.Payload.Currency,
		CreatedAt:  n.Payload.Timestamp,
	}

	amount := FormatAmount(n.Payload.AmountMinorUnits, n.Payload.Currency)
	switch n.Kind {
	case event.PaymentVerified:
		item.Title = "Payment received"
		item.Message = fmt.Sprintf("Payment %s of %s verified", n.Payload.PaymentID, amount)
	default:
		item.Title = "Payment failed"
		item.Message = fmt.Sprintf("Payment %s of %s failed verification", n.Payload.PaymentID, amount)
	}
	if n.Payload.CustomerID != "" {
		item.Message += " for " + n.Payload.CustomerID
	}
	return item
}

// FormatAmount renders minor units with two decimals, e.g. 16599 INR -> "INR 165.99".
func FormatAmount(minor int64, currency string) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s %s%d.%02d", currency, sign, minor/100, minor%100)
}
