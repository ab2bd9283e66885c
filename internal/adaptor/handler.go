package adaptor

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"transit-booking/internal/usecase"
	"transit-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Handler struct {
	Trip    *TripHandler
	Seat    *SeatHandler
	Booking *BookingHandler
	Payment *PaymentHandler
	Audit   *AuditHandler
}

func NewHandler(service *usecase.Service, config *utils.Config, log *zap.Logger) *Handler {
	currency := config.Payment.Currency
	return &Handler{
		Trip:    NewTripHandler(service.Trip, service.Seat, service.Fare, currency, log),
		Seat:    NewSeatHandler(service.Seat, log),
		Booking: NewBookingHandler(service.Booking, service.Payment, currency, log),
		Payment: NewPaymentHandler(service.Payment, log),
		Audit:   NewAuditHandler(service.Audit, log),
	}
}

// decodeAndValidate reads a JSON body into req and runs struct validation,
// writing the 400 itself on failure. An empty body is allowed when
// optional is set.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, req any, optional bool) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		if !(optional && errors.Is(err, io.EOF)) {
			utils.ResponseBadRequest(w, "Invalid request body", nil)
			return false
		}
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return false
	}
	return true
}

func parseUUIDParam(w http.ResponseWriter, value, name string) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(value)
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid "+name, nil)
		return uuid.Nil, false
	}
	return id, true
}

// handleServiceError maps the engine's sentinel errors onto HTTP statuses.
func handleServiceError(log *zap.Logger, w http.ResponseWriter, err error, operation string) {
	var validation *usecase.ValidationError

	switch {
	case errors.As(err, &validation):
		log.Warn(operation+" validation failed",
			zap.Error(err),
			zap.String("operation", operation))
		if len(validation.Fields) > 0 {
			utils.ResponseBadRequest(w, "Validation failed", validation.Fields)
			return
		}
		utils.ResponseBadRequest(w, validation.Message, nil)

	case errors.Is(err, usecase.ErrValidation):
		log.Warn(operation+" validation failed",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseBadRequest(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrNotFound):
		log.Warn(operation+" failed - not found",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseNotFound(w, err.Error())

	case errors.Is(err, usecase.ErrIllegalTransition),
		errors.Is(err, usecase.ErrIntentAlreadySettled):
		log.Warn(operation+" failed - invalid state",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseConflict(w, err.Error(), nil)

	case errors.Is(err, usecase.ErrInvalidSignature):
		log.Warn(operation+" failed - bad signature",
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseUnauthorized(w, err.Error())

	default:
		log.Error("Failed to "+operation,
			zap.Error(err),
			zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
