package usecase

import (
	"transit-booking/internal/data/repository"
	"transit-booking/pkg/clock"
	"transit-booking/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Trip    TripService
	Fare    FareService
	Seat    SeatService
	Booking BookingService
	Payment PaymentService
	Audit   AuditService
}

// NewService builds the engine. Lock order across services is
// payment -> booking -> seat; no service calls back up that chain.
func NewService(repo *repository.Repository, clk clock.Clock, config *utils.Config, refunder Refunder, notifier Notifier, log *zap.Logger) *Service {
	if refunder == nil {
		refunder = NewLogRefunder(config.Payment.Currency, log)
	}
	if notifier == nil {
		notifier = NewLogNotifier(log)
	}

	audit := NewAuditService(repo.Audit, clk, log)
	fare := NewFareService(repo.Trip, config.Fare, log)
	seat := NewSeatService(repo.Trip, repo.Seat, clk, config.Booking, log)
	booking := NewBookingService(repo, seat, fare, audit, refunder, notifier, clk, config.Booking, log)
	payment := NewPaymentService(repo.Payment, booking, seat, audit, clk, config.Payment, log)

	return &Service{
		Trip:    NewTripService(repo.Trip, log),
		Fare:    fare,
		Seat:    seat,
		Booking: booking,
		Payment: payment,
		Audit:   audit,
	}
}

// Shutdown stops every pending timer, outermost service first.
func (s *Service) Shutdown() {
	s.Payment.Shutdown()
	s.Booking.Shutdown()
	s.Seat.Shutdown()
}
