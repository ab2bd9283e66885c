package adaptor

import (
	"net/http"
	"strconv"
	"strings"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/dto/response"
	"transit-booking/internal/usecase"
	"transit-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TripHandler struct {
	trips    usecase.TripService
	seats    usecase.SeatService
	fares    usecase.FareService
	currency string
	log      *zap.Logger
}

func NewTripHandler(trips usecase.TripService, seats usecase.SeatService, fares usecase.FareService, currency string, log *zap.Logger) *TripHandler {
	return &TripHandler{
		trips:    trips,
		seats:    seats,
		fares:    fares,
		currency: currency,
		log:      log.With(zap.String("handler", "trip")),
	}
}

// GetTrips handles GET /api/trips
func (h *TripHandler) GetTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := h.trips.GetAllTrips(r.Context())
	if err != nil {
		handleServiceError(h.log, w, err, "get trips")
		return
	}

	utils.ResponseSuccess(w, "success", response.TripsToResponse(trips, h.currency))
}

// GetTripByID handles GET /api/trips/{id}
func (h *TripHandler) GetTripByID(w http.ResponseWriter, r *http.Request) {
	trip, err := h.trips.GetTripByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(h.log, w, err, "get trip")
		return
	}

	utils.ResponseSuccess(w, "success", response.TripToResponse(trip, h.currency))
}

// GetSeatMap handles GET /api/trips/{id}/seats
func (h *TripHandler) GetSeatMap(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "id")
	if _, err := h.trips.GetTripByID(r.Context(), tripID); err != nil {
		handleServiceError(h.log, w, err, "get seat map")
		return
	}

	seats, err := h.seats.GetSeats(r.Context(), tripID)
	if err != nil {
		handleServiceError(h.log, w, err, "get seat map")
		return
	}
	summary, err := h.seats.GetSeatSummary(r.Context(), tripID)
	if err != nil {
		handleServiceError(h.log, w, err, "get seat map")
		return
	}

	utils.ResponseSuccess(w, "success", response.SeatMapResponse{
		TripID:   tripID,
		Total:    summary.Total,
		Free:     summary.Free,
		Held:     summary.Held,
		Occupied: summary.Occupied,
		Blocked:  summary.Blocked,
		Seats:    response.SeatsToResponse(seats),
	})
}

// GetFareQuote handles GET /api/trips/{id}/fare?seats=&channel=&promo=
func (h *TripHandler) GetFareQuote(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "id")
	query := r.URL.Query()

	seats := 1
	if raw := query.Get("seats"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			utils.ResponseBadRequest(w, "seats must be a number", nil)
			return
		}
		seats = n
	}
	channel := entity.Channel(strings.ToUpper(query.Get("channel")))
	if channel == "" {
		channel = entity.ChannelWeb
	}

	fare, err := h.fares.Quote(r.Context(), tripID, seats, channel, query.Get("promo"))
	if err != nil {
		handleServiceError(h.log, w, err, "quote fare")
		return
	}

	utils.ResponseSuccess(w, "success", response.FareResponse{
		TripID:    tripID,
		Seats:     seats,
		Channel:   string(channel),
		Breakdown: fare,
		Display:   utils.FormatCurrency(h.currency, fare.GrossFare),
	})
}
