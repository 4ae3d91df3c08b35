package razorpay_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infrastructure/gateway/razorpay"
)

func TestCreateOrder_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "rzp_test_key", user)
		require.Equal(t, "secret", pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.EqualValues(t, 16599, body["amount"])
		require.Equal(t, "INR", body["currency"])
		require.Equal(t, "receipt_1", body["receipt"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_abc","entity":"order","amount":16599,"currency":"INR","receipt":"receipt_1","status":"created","created_at":1700000000}`))
	}))
	defer srv.Close()

	client := razorpay.New(razorpay.Config{BaseURL: srv.URL, KeyID: "rzp_test_key", KeySecret: "secret"})

	order, err := client.CreateOrder(context.Background(), contracts.OrderRequest{
		AmountMinorUnits: 16599,
		Currency:         "INR",
		Receipt:          "receipt_1",
	})
	require.NoError(t, err)
	require.Equal(t, "order_abc", order.ID)
	require.Equal(t, "created", order.Status)
	require.Equal(t, int64(1700000000), order.CreatedAt)
}

func TestCreateOrder_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"Order amount less than minimum amount allowed"}}`))
	}))
	defer srv.Close()

	client := razorpay.New(razorpay.Config{BaseURL: srv.URL, KeyID: "k", KeySecret: "s"})

	_, err := client.CreateOrder(context.Background(), contracts.OrderRequest{AmountMinorUnits: 1, Currency: "INR"})
	require.ErrorIs(t, err, contracts.ErrCollaboratorUnavailable)

	var apiErr *razorpay.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
	require.Equal(t, "BAD_REQUEST_ERROR", apiErr.Detail.Code)
	require.Equal(t, "closed", client.State())
}

func TestCreateOrder_BreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := razorpay.New(razorpay.Config{
		BaseURL:          srv.URL,
		KeyID:            "k",
		KeySecret:        "s",
		FailureThreshold: 2,
		OpenTimeout:      time.Minute,
	})

	req := contracts.OrderRequest{AmountMinorUnits: 100, Currency: "INR"}
	for iter := 0; iter < 2; iter++ {
		_, err := client.CreateOrder(context.Background(), req)
		require.ErrorIs(t, err, contracts.ErrCollaboratorUnavailable)
	}

	_, err := client.CreateOrder(context.Background(), req)
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	require.ErrorIs(t, err, contracts.ErrCollaboratorUnavailable)
	require.Equal(t, int32(2), hits.Load())
	require.Equal(t, "open", client.State())
}
