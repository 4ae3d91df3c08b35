package intent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/xid"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
	domainIntent "github.com/rcarvalho-pb/storefront_payments-go/internal/domain/intent"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/logging"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/metrics"
)

// Manager owns creation and order binding of payment intents.
type Manager struct {
	Repo       domainIntent.Repository
	Gateway    contracts.Gateway
	Currencies []string
	Logger     logging.Logger
	Metrics    *metrics.Counters
	Now        func() time.Time
}

type CreateOrderRequest struct {
	AmountMinorUnits int64
	Currency         string
	Receipt          string
	Notes            map[string]string
}

// Order is what the checkout page needs to open the collection UI.
type Order struct {
	contracts.Order
	IntentID string `json:"intent_id"`
}

func (m *Manager) CreateIntent(ctx context.Context, amountMinorUnits int64, currency string, notes map[string]string) (*domainIntent.PaymentIntent, error) {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if !slices.ContainsFunc(m.Currencies, func(c string) bool { return strings.EqualFold(c, code) }) {
		return nil, fmt.Errorf("%w: %q", domainIntent.ErrUnsupportedCurrency, currency)
	}

	p, err := domainIntent.New(uuid.NewString(), amountMinorUnits, code, notes, m.now())
	if err != nil {
		return nil, err
	}

	if err := m.Repo.Save(ctx, p); err != nil {
		return nil, fmt.Errorf("save payment intent: %w", err)
	}

	if m.Metrics != nil {
		m.Metrics.IncIntentsCreated()
	}
	m.logger().Info("payment intent created", map[string]any{
		"intent-id": p.ID,
		"amount":    p.AmountMinorUnits,
		"currency":  p.Currency,
	})

	return p, nil
}

func (m *Manager) AttachExternalOrder(ctx context.Context, intentID, externalOrderID string) error {
	if err := m.Repo.AttachExternalOrder(ctx, intentID, externalOrderID); err != nil {
		return err
	}

	m.logger().Info("external order attached", map[string]any{
		"intent-id": intentID,
		"order-id":  externalOrderID,
	})
	return nil
}

func (m *Manager) GetIntent(ctx context.Context, intentID string) (*domainIntent.PaymentIntent, error) {
	return m.Repo.FindByID(ctx, intentID)
}

func (m *Manager) FindByExternalOrder(ctx context.Context, externalOrderID string) (*domainIntent.PaymentIntent, error) {
	return m.Repo.FindByExternalOrderID(ctx, externalOrderID)
}

func (m *Manager) ListIntents(ctx context.Context) ([]*domainIntent.PaymentIntent, error) {
	return m.Repo.List(ctx)
}

// CreateOrder creates an intent, asks the gateway for an order and binds the
// two. When the gateway fails the intent stays created and can be retried.
func (m *Manager) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	p, err := m.CreateIntent(ctx, req.AmountMinorUnits, req.Currency, req.Notes)
	if err != nil {
		return nil, err
	}

	receipt := req.Receipt
	if receipt == "" {
		receipt = "receipt_" + xid.New().String()
	}

	order, err := m.Gateway.CreateOrder(ctx, contracts.OrderRequest{
		AmountMinorUnits: p.AmountMinorUnits,
		Currency:         p.Currency,
		Receipt:          receipt,
		Notes:            p.Notes,
	})
	if err != nil {
		m.logger().Error("gateway order creation failed", map[string]any{
			"intent-id": p.ID,
			"error":     err.Error(),
		})
		if !errors.Is(err, contracts.ErrCollaboratorUnavailable) {
			err = fmt.Errorf("%w: %v", contracts.ErrCollaboratorUnavailable, err)
		}
		return nil, err
	}

	if err := m.AttachExternalOrder(ctx, p.ID, order.ID); err != nil {
		return nil, err
	}

	return &Order{Order: *order, IntentID: p.ID}, nil
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Manager) logger() logging.Logger {
	if m.Logger == nil {
		return logging.Nop{}
	}
	return m.Logger
}
