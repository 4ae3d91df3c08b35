package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	intentApplication "github.com/rcarvalho-pb/storefront_payments-go/internal/application/intent"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/notification"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/intent"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/logging"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/metrics"
)

type AdminHandler struct {
	Intents  *intentApplication.Manager
	Inbox    *notification.Inbox
	Mailer   *notification.Mailer
	Metrics  *metrics.Counters
	Logger   logging.Logger
	Validate *validator.Validate
}

type SendEmailRequest struct {
	To      string `json:"to" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required"`
}

type NotificationsResponse struct {
	Notifications []notification.AdminNotification `json:"notifications"`
	Unread        int                              `json:"unread"`
}

func (h *AdminHandler) ListIntents(w http.ResponseWriter, r *http.Request) {
	intents, err := h.Intents.ListIntents(r.Context())
	if err != nil {
		h.Logger.Error("list intents failed", map[string]any{"error": err.Error()})
		RespondWithError(w, http.StatusInternalServerError, "Failed to list intents")
		return
	}
	if intents == nil {
		intents = []*intent.PaymentIntent{}
	}
	RespondWithJSON(w, http.StatusOK, intents)
}

func (h *AdminHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	items := h.Inbox.List()
	if items == nil {
		items = []notification.AdminNotification{}
	}
	RespondWithJSON(w, http.StatusOK, NotificationsResponse{
		Notifications: items,
		Unread:        h.Inbox.Unread(),
	})
}

func (h *AdminHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if err := h.Inbox.MarkRead(chi.URLParam(r, "id")); err != nil {
		RespondWithError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req SendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if err := h.Validate.Struct(req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Mailer.SendManual(r.Context(), req.To, req.Subject, req.Body); err != nil {
		RespondWithError(w, statusFor(err), "Failed to send email")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *AdminHandler) ShowMetrics(w http.ResponseWriter, _ *http.Request) {
	RespondWithJSON(w, http.StatusOK, h.Metrics.Snapshot())
}
