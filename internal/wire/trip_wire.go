package wire

import (
	"transit-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireTrip(r chi.Router, tripHandler *adaptor.TripHandler, log *zap.Logger) {
	// GET /api/trips - Trip catalog
	r.Get("/api/trips", tripHandler.GetTrips)

	// GET /api/trips/{id} - Trip details
	r.Get("/api/trips/{id}", tripHandler.GetTripByID)

	// GET /api/trips/{id}/seats - Seat map with status counts
	r.Get("/api/trips/{id}/seats", tripHandler.GetSeatMap)

	// GET /api/trips/{id}/fare - Fare quote for a seat count and channel
	r.Get("/api/trips/{id}/fare", tripHandler.GetFareQuote)
}
