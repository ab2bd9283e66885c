package wire

import (
	"transit-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(r chi.Router, paymentHandler *adaptor.PaymentHandler, log *zap.Logger) {
	// GET /api/payment-methods - Supported methods and their windows
	r.Get("/api/payment-methods", paymentHandler.GetPaymentMethods)

	r.Route("/api/payments", func(r chi.Router) {
		// POST /api/payments - Start a payment for a booking
		r.Post("/", paymentHandler.InitiatePayment)

		// POST /api/payments/retry - Start over after a failed or expired payment
		r.Post("/retry", paymentHandler.RetryPayment)

		// GET /api/payments/{id} - Payment intent details
		r.Get("/{id}", paymentHandler.GetPayment)

		// ==================== GATEWAY CALLBACK ====================
		// POST /api/payments/{id}/settlement - Signed gateway outcome
		r.Post("/{id}/settlement", paymentHandler.ApplySettlement)
	})
}
