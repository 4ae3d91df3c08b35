package sandbox

import (
	"context"
	"time"

	"github.com/rs/xid"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
)

// Gateway issues orders locally for development without gateway credentials.
type Gateway struct {
	Latency time.Duration
	Now     func() time.Time
}

func (g *Gateway) CreateOrder(ctx context.Context, req contracts.OrderRequest) (*contracts.Order, error) {
	if g.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.Latency):
		}
	}

	now := time.Now
	if g.Now != nil {
		now = g.Now
	}

	return &contracts.Order{
		ID:        "order_" + xid.New().String(),
		Entity:    "order",
		Amount:    req.AmountMinorUnits,
		Currency:  req.Currency,
		Receipt:   req.Receipt,
		Status:    "created",
		Notes:     req.Notes,
		CreatedAt: now().Unix(),
	}, nil
}
