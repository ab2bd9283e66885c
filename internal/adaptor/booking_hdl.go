package adaptor

import (
	"net/http"
	"strings"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"
	"transit-booking/internal/dto/request"
	"transit-booking/internal/dto/response"
	"transit-booking/internal/usecase"
	"transit-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type BookingHandler struct {
	service  usecase.BookingService
	payments usecase.PaymentService
	currency string
	log      *zap.Logger
}

func NewBookingHandler(service usecase.BookingService, payments usecase.PaymentService, currency string, log *zap.Logger) *BookingHandler {
	return &BookingHandler{
		service:  service,
		payments: payments,
		currency: currency,
		log:      log.With(zap.String("handler", "booking")),
	}
}

// CreateBooking handles POST /api/bookings
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req request.CreateBookingRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	booking, err := h.service.CreateBooking(r.Context(), &req)
	if err != nil {
		handleServiceError(h.log, w, err, "create booking")
		return
	}

	utils.ResponseCreated(w, "success", response.BookingToResponse(booking, h.currency))
}

// GetBookings handles GET /api/bookings?state=&user_id=&page=&per_page=
func (h *BookingHandler) GetBookings(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 10),
	}

	filter := repository.BookingFilter{
		UserID: query.Get("user_id"),
		Offset: page.Offset(),
		Limit:  page.Limit(),
	}
	if state := query.Get("state"); state != "" {
		filter.State = entity.BookingState(strings.ToUpper(state))
		if !filter.State.Valid() {
			utils.ResponseBadRequest(w, "Unknown booking state", nil)
			return
		}
	}

	bookings, total, err := h.service.ListBookings(r.Context(), filter)
	if err != nil {
		handleServiceError(h.log, w, err, "list bookings")
		return
	}

	utils.ResponseSuccess(w, "success",
		response.NewPaginatedResponse(response.BookingsToResponse(bookings, h.currency), page.Page, page.Limit(), total))
}

// GetBooking handles GET /api/bookings/{pnr}
func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.GetBookingByPNR(r.Context(), chi.URLParam(r, "pnr"))
	if err != nil {
		handleServiceError(h.log, w, err, "get booking")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking, h.currency))
}

// GetBookingPayments handles GET /api/bookings/{pnr}/payments
func (h *BookingHandler) GetBookingPayments(w http.ResponseWriter, r *http.Request) {
	intents, err := h.payments.GetIntentsByPNR(r.Context(), chi.URLParam(r, "pnr"))
	if err != nil {
		handleServiceError(h.log, w, err, "get booking payments")
		return
	}

	utils.ResponseSuccess(w, "success", response.PaymentIntentsToResponse(intents))
}

// CancelBooking handles POST /api/bookings/{pnr}/cancel
func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var req request.CancelBookingRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}
	if req.Reason == "" {
		req.Reason = "cancelled by request"
	}

	booking, err := h.service.CancelBooking(r.Context(), chi.URLParam(r, "pnr"), req.Reason)
	if err != nil {
		handleServiceError(h.log, w, err, "cancel booking")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking, h.currency))
}

// TransitionBooking handles POST /api/bookings/{pnr}/transitions
func (h *BookingHandler) TransitionBooking(w http.ResponseWriter, r *http.Request) {
	var req request.TransitionRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	state := entity.BookingState(strings.ToUpper(req.State))
	booking, err := h.service.TransitionTo(r.Context(), chi.URLParam(r, "pnr"), state, req.Reason)
	if err != nil {
		handleServiceError(h.log, w, err, "transition booking")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking, h.currency))
}

// ReassignSeats handles POST /api/bookings/{pnr}/reassign
func (h *BookingHandler) ReassignSeats(w http.ResponseWriter, r *http.Request) {
	var req request.ReassignSeatsRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	lockID, ok := parseUUIDParam(w, req.LockID, "lock ID")
	if !ok {
		return
	}

	booking, err := h.service.ReassignSeats(r.Context(), chi.URLParam(r, "pnr"), lockID)
	if err != nil {
		handleServiceError(h.log, w, err, "reassign seats")
		return
	}

	utils.ResponseSuccess(w, "success", response.BookingToResponse(booking, h.currency))
}
