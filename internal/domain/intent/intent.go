package intent

import (
	"errors"
	"maps"
	"time"
)

type State string

const (
	StateCreated  State = "created"
	StateVerified State = "verified"
	StateFailed   State = "failed"
)

// NoteCustomerID is the merchant note carrying the customer identifier.
const NoteCustomerID = "customer_id"

var (
	ErrInvalidAmount       = errors.New("amount must be a positive number of minor units")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrNotFound            = errors.New("payment intent not found")
	ErrAlreadyResolved     = errors.New("payment intent already resolved")
	ErrOrderIDConflict     = errors.New("payment intent already bound to a different order")
	ErrOrderMismatch       = errors.New("order id does not match payment intent")
	ErrInvalidTransition   = errors.New("invalid payment intent transition")
)

func (s State) Terminal() bool {
	return s == StateVerified || s == StateFailed
}

func (s State) Valid() bool {
	return s == StateCreated || s.Terminal()
}

type PaymentIntent struct {
	ID                string            `json:"id"`
	AmountMinorUnits  int64             `json:"amount"`
	Currency          string            `json:"currency"`
	Notes             map[string]string `json:"notes,omitempty"`
	ExternalOrderID   string            `json:"external_order_id,omitempty"`
	State             State             `json:"state"`
	ExternalPaymentID string            `json:"external_payment_id,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	ResolvedAt        *time.Time        `json:"resolved_at,omitempty"`
}

func New(id string, amountMinorUnits int64, currency string, notes map[string]string, now time.Time) (*PaymentIntent, error) {
	if amountMinorUnits <= 0 {
		return nil, ErrInvalidAmount
	}

	return &PaymentIntent{
		ID:               id,
		AmountMinorUnits: amountMinorUnits,
		Currency:         currency,
		Notes:            maps.Clone(notes),
		State:            StateCreated,
		CreatedAt:        now.UTC(),
	}, nil
}

func (p *PaymentIntent) CustomerID() string {
	return p.Notes[NoteCustomerID]
}

// AttachOrder records the gateway order id. Repeating the same id is a no-op.
func (p *PaymentIntent) AttachOrder(externalOrderID string) error {
	if p.State.Terminal() {
		return ErrAlreadyResolved
	}
	if p.ExternalOrderID == externalOrderID {
		return nil
	}
	if p.ExternalOrderID != "" {
		return ErrOrderIDConflict
	}

	p.ExternalOrderID = externalOrderID
	return nil
}

// Resolve moves a created intent into a terminal state. It is the only
// mutation allowed on State.
func (p *PaymentIntent) Resolve(to State, externalPaymentID string, at time.Time) error {
	if p.State.Terminal() {
		return ErrAlreadyResolved
	}
	if !to.Terminal() {
		return ErrInvalidTransition
	}

	resolvedAt := at.UTC()
	p.State = to
	p.ExternalPaymentID = externalPaymentID
	p.ResolvedAt = &resolvedAt
	return nil
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (p *PaymentIntent) Clone() *PaymentIntent {
	c := *p
	c.Notes = maps.Clone(p.Notes)
	if p.ResolvedAt != nil {
		t := *p.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}
