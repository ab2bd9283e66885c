package adaptor

import (
	"net/http"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/dto/request"
	"transit-booking/internal/dto/response"
	"transit-booking/internal/usecase"
	"transit-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// GetPaymentMethods handles GET /api/payment-methods
func (h *PaymentHandler) GetPaymentMethods(w http.ResponseWriter, r *http.Request) {
	utils.ResponseSuccess(w, "success", h.service.PaymentMethods())
}

// InitiatePayment handles POST /api/payments
func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req request.InitiatePaymentRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	intent, err := h.service.InitiatePayment(r.Context(), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "initiate payment")
		return
	}

	utils.ResponseCreated(w, "success", response.PaymentIntentToResponse(intent))
}

// RetryPayment handles POST /api/payments/retry
func (h *PaymentHandler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	var req request.InitiatePaymentRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	intent, err := h.service.RetryPayment(r.Context(), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "retry payment")
		return
	}

	utils.ResponseCreated(w, "success", response.PaymentIntentToResponse(intent))
}

// GetPayment handles GET /api/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	intentID, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "payment ID")
	if !ok {
		return
	}

	intent, err := h.service.GetIntent(r.Context(), intentID)
	if err != nil {
		handleServiceError(h.log, w, err, "get payment")
		return
	}

	utils.ResponseSuccess(w, "success", response.PaymentIntentToResponse(intent))
}

// ApplySettlement handles POST /api/payments/{id}/settlement, the gateway
// callback. Replays of an applied outcome succeed without side effects.
func (h *PaymentHandler) ApplySettlement(w http.ResponseWriter, r *http.Request) {
	intentID, ok := parseUUIDParam(w, chi.URLParam(r, "id"), "payment ID")
	if !ok {
		return
	}

	var req request.SettlementRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	status := entity.PaymentStatus(req.Status)
	if err := h.service.VerifySignature(intentID, status, req.GatewayReference, req.Signature); err != nil {
		handleServiceError(h.log, w, err, "verify settlement")
		return
	}

	intent, err := h.service.ApplySettlement(r.Context(), intentID, status, req.GatewayReference)
	if err != nil {
		handleServiceError(h.log, w, err, "apply settlement")
		return
	}

	utils.ResponseSuccess(w, "success", response.PaymentIntentToResponse(intent))
}
