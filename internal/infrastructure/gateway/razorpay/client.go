package razorpay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
)

const DefaultBaseURL = "https://api.razorpay.com/v1"

type Config struct {
	BaseURL   string
	KeyID     string
	KeySecret string
	Timeout   time.Duration

	// Consecutive failures that open the breaker, and how long it stays open.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// APIError is the error body returned by the Orders API.
type APIError struct {
	Status int    `json:"-"`
	Detail Detail `json:"error"`
}

type Detail struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay: %d %s: %s", e.Status, e.Detail.Code, e.Detail.Description)
}

type orderBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "razorpay-orders",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Client errors are answers, not outages.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < http.StatusInternalServerError
			}
			return err == nil
		},
	})

	return &Client{http: httpClient, breaker: breaker}
}

func (c *Client) CreateOrder(ctx context.Context, req contracts.OrderRequest) (*contracts.Order, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		return c.createOrder(ctx, req)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", contracts.ErrCollaboratorUnavailable, err)
	}
	return res.(*contracts.Order), nil
}

func (c *Client) createOrder(ctx context.Context, req contracts.OrderRequest) (*contracts.Order, error) {
	var order contracts.Order
	var apiErr APIError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(orderBody{
			Amount:   req.AmountMinorUnits,
			Currency: req.Currency,
			Receipt:  req.Receipt,
			Notes:    req.Notes,
		}).
		SetResult(&order).
		SetError(&apiErr).
		Post("/orders")
	if err != nil {
		return nil, fmt.Errorf("razorpay: %w", err)
	}

	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return nil, &apiErr
	}
	if order.ID == "" {
		return nil, errors.New("razorpay: order response without id")
	}
	return &order, nil
}

func (c *Client) State() string {
	return c.breaker.State().String()
}
