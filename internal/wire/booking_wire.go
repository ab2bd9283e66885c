package wire

import (
	"transit-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireBooking(r chi.Router, bookingHandler *adaptor.BookingHandler, log *zap.Logger) {
	r.Route("/api/bookings", func(r chi.Router) {
		// POST /api/bookings - Create a booking from a live hold
		r.Post("/", bookingHandler.CreateBooking)

		// GET /api/bookings - List bookings, filter by state or user
		r.Get("/", bookingHandler.GetBookings)

		// GET /api/bookings/{pnr} - Booking details
		r.Get("/{pnr}", bookingHandler.GetBooking)

		// GET /api/bookings/{pnr}/payments - Payment intents for a booking
		r.Get("/{pnr}/payments", bookingHandler.GetBookingPayments)

		// ==================== STATE CHANGES ====================
		// POST /api/bookings/{pnr}/cancel - Cancel, refunding if paid
		r.Post("/{pnr}/cancel", bookingHandler.CancelBooking)

		// POST /api/bookings/{pnr}/transitions - Operator state change
		r.Post("/{pnr}/transitions", bookingHandler.TransitionBooking)

		// POST /api/bookings/{pnr}/reassign - Seat a PAID_NO_SEAT booking
		r.Post("/{pnr}/reassign", bookingHandler.ReassignSeats)
	})
}
