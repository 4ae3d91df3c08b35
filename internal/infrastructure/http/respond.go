package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/contracts"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/application/notification"
	"github.com/rcarvalho-pb/storefront_payments-go/internal/domain/intent"
)

func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, map[string]string{"error": message})
}

// statusFor maps application errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, intent.ErrInvalidAmount),
		errors.Is(err, intent.ErrUnsupportedCurrency),
		errors.Is(err, intent.ErrOrderMismatch),
		errors.Is(err, notification.ErrInvalidEmail):
		return http.StatusBadRequest
	case errors.Is(err, intent.ErrNotFound),
		errors.Is(err, notification.ErrNotificationNotFound):
		return http.StatusNotFound
	case errors.Is(err, intent.ErrAlreadyResolved),
		errors.Is(err, intent.ErrOrderIDConflict):
		return http.StatusConflict
	case errors.Is(err, contracts.ErrCollaboratorUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
