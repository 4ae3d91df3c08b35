package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/rcarvalho-pb/storefront_payments-go/internal/infra/logging"
)

func NewRouter(payments *PaymentHandler, admin *AdminHandler, logger logging.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/create-order", payments.CreateOrder)
		r.Post("/verify-payment", payments.VerifyPayment)
		r.Post("/webhook/razorpay", payments.Webhook)
		r.Get("/intents/{id}", payments.GetIntent)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/intents", admin.ListIntents)
			r.Get("/notifications", admin.ListNotifications)
			r.Post("/notifications/{id}/read", admin.MarkRead)
			r.Post("/emails", admin.SendEmail)
			r.Get("/metrics", admin.ShowMetrics)
		})
	})

	return r
}
