package repository

import (
	"errors"

	"transit-booking/internal/data/entity"
	"transit-booking/pkg/database"

	"go.uber.org/zap"
)

var (
	ErrDuplicate   = errors.New("duplicate record")
	ErrSequenceGap = errors.New("audit sequence gap")
)

type Repository struct {
	Trip    TripRepository
	Seat    SeatRepository
	Booking BookingRepository
	Payment PaymentRepository
	Audit   AuditRepository
}

// NewRepository builds the engine's stores. Engine state lives in memory;
// when db is non-nil the audit trail is archived to Postgres instead.
func NewRepository(trips []*entity.Trip, db database.PgxIface, log *zap.Logger) *Repository {
	var audit AuditRepository
	if db != nil {
		audit = NewPostgresAuditRepository(db, log)
	} else {
		audit = NewAuditRepository(log)
	}

	return &Repository{
		Trip:    NewTripRepository(trips, log),
		Seat:    NewSeatRepository(log),
		Booking: NewBookingRepository(log),
		Payment: NewPaymentRepository(log),
		Audit:   audit,
	}
}
