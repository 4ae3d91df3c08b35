package sandbox_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/gateway/sandbox"
)

func TestCreateOrder(t *testing.T) {
	now := time.Unix(1700000000, 0)
	gw := &sandbox.Gateway{Now: func() time.Time { return now }}

	a, err := gw.CreateOrder(context.Background(), contracts.OrderRequest{AmountMinorUnits: 500, Currency: "INR", Receipt: "r1"})
	require.NoError(t, err)
	b, err := gw.CreateOrder(context.Background(), contracts.OrderRequest{AmountMinorUnits: 500, Currency: "INR", Receipt: "r2"})
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(a.ID, "order_"))
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, int64(500), a.Amount)
	require.Equal(t, "created", a.Status)
	require.Equal(t, int64(1700000000), a.CreatedAt)
}

func TestCreateOrder_HonorsContext(t *testing.T) {
	gw := &sandbox.Gateway{Latency: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.CreateOrder(ctx, contracts.OrderRequest{AmountMinorUnits: 1, Currency: "INR"})
	require.ErrorIs(t, err, context.Canceled)
}
