package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	intentApplication "github.com/rcarvalho-pb/storefront_payments-go/internal/application/intent"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/verification"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/intent"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/logging"
)

const (
	SignatureHeader = "X-Razorpay-Signature"
	maxWebhookBytes = 1 << 20
	defaultCurrency = "INR"
)

type PaymentHandler struct {
	Intents  *intentApplication.Manager
	Gate     *verification.Gate
	Logger   logging.Logger
	Validate *validator.Validate
	Timeout  time.Duration
}

type CreateOrderRequest struct {
	Amount   int64             `json:"amount" validate:"gt=0"`
	Currency string            `json:"currency" validate:"omitempty,len=3,alpha"`
	Receipt  string            `json:"receipt" validate:"omitempty,max=40"`
	Notes    map[string]string `json:"notes"`
}

// ClientError is sent instead of an assertion when the collection UI was
// dismissed or the gateway reported a failure.
type ClientError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type VerifyPaymentRequest struct {
	PaymentID string       `json:"razorpay_payment_id" validate:"required_without=Error"`
	OrderID   string       `json:"razorpay_order_id" validate:"required_without=Error"`
	Signature string       `json:"razorpay_signature" validate:"required_without=Error"`
	IntentID  string       `json:"intent_id"`
	Error     *ClientError `json:"error"`
}

type VerifyPaymentResponse struct {
	Verified  bool   `json:"verified"`
	Message   string `json:"message"`
	IntentID  string `json:"intent_id,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Currency == "" {
		req.Currency = defaultCurrency
	}

	order, err := h.Intents.CreateOrder(ctx, intentApplication.CreateOrderRequest{
		AmountMinorUnits: req.Amount,
		Currency:         req.Currency,
		Receipt:          req.Receipt,
		Notes:            req.Notes,
	})
	if err != nil {
		if code := statusFor(err); code == http.StatusBadRequest {
			RespondWithError(w, code, err.Error())
			return
		}
		h.Logger.Error("order creation failed", map[string]any{"error": err.Error()})
		RespondWithJSON(w, http.StatusInternalServerError, map[string]any{
			"error":     "Failed to create order",
			"retryable": true,
		})
		return
	}

	RespondWithJSON(w, http.StatusOK, order)
}

func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithJSON(w, http.StatusBadRequest, VerifyPaymentResponse{Message: "Invalid request"})
		return
	}

	if req.Error != nil {
		h.Logger.Warn("payment not completed by client", map[string]any{
			"order-id":    req.OrderID,
			"code":        req.Error.Code,
			"description": req.Error.Description,
		})
		RespondWithJSON(w, http.StatusBadRequest, VerifyPaymentResponse{
			Message:   "Payment was not completed",
			Retryable: true,
		})
		return
	}

	if err := h.Validate.Struct(req); err != nil {
		RespondWithJSON(w, http.StatusBadRequest, VerifyPaymentResponse{Message: "Invalid request"})
		return
	}

	intentID := req.IntentID
	if intentID == "" {
		p, err := h.Intents.FindByExternalOrder(ctx, req.OrderID)
		if err != nil {
			h.verifyError(w, err)
			return
		}
		intentID = p.ID
	}

	res, err := h.Gate.Verify(ctx, intentID, req.PaymentID, req.OrderID, req.Signature)
	if err != nil && !errors.Is(err, intent.ErrAlreadyResolved) {
		h.verifyError(w, err)
		return
	}

	if !res.Verified() {
		RespondWithJSON(w, http.StatusBadRequest, VerifyPaymentResponse{
			Message:  "Payment verification failed",
			IntentID: res.IntentID,
		})
		return
	}

	RespondWithJSON(w, http.StatusOK, VerifyPaymentResponse{
		Verified:  true,
		Message:   "Payment verified successfully",
		IntentID:  res.IntentID,
		PaymentID: res.PaymentID,
	})
}

func (h *PaymentHandler) verifyError(w http.ResponseWriter, err error) {
	switch statusFor(err) {
	case http.StatusBadRequest, http.StatusNotFound:
		RespondWithJSON(w, http.StatusBadRequest, VerifyPaymentResponse{Message: "Payment verification failed"})
	default:
		h.Logger.Error("payment verification error", map[string]any{"error": err.Error()})
		RespondWithError(w, http.StatusInternalServerError, "Failed to verify payment")
	}
}

func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}

	res, err := h.Gate.VerifyWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		h.Logger.Error("webhook processing failed", map[string]any{"error": err.Error()})
		RespondWithError(w, http.StatusInternalServerError, "Webhook processing failed")
		return
	}
	if res.Outcome == verification.WebhookRejected {
		RespondWithError(w, http.StatusBadRequest, "Invalid signature")
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *PaymentHandler) GetIntent(w http.ResponseWriter, r *http.Request) {
	p, err := h.Intents.GetIntent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		RespondWithError(w, statusFor(err), err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, p)
}

func (h *PaymentHandler) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.Timeout)
}
