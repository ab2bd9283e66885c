package repository

import (
	"context"
	"fmt"
	"sync"

	"transit-booking/internal/data/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BookingFilter struct {
	State  entity.BookingState
	UserID string
	Offset int
	Limit  int // 0 means no limit
}

// BookingRepository is the live booking registry. Records are copied in
// and out so a caller only changes a booking through Update.
type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	Update(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByPNR(ctx context.Context, pnr string) (*entity.Booking, error)
	ExistsPNR(ctx context.Context, pnr string) (bool, error)
	FindAll(ctx context.Context, filter BookingFilter) ([]*entity.Booking, int64, error)
}

type bookingRepository struct {
	mu    sync.RWMutex
	byPNR map[string]*entity.Booking
	byID  map[uuid.UUID]string
	order []string
	log   *zap.Logger
}

func NewBookingRepository(log *zap.Logger) BookingRepository {
	return &bookingRepository{
		byPNR: make(map[string]*entity.Booking),
		byID:  make(map[uuid.UUID]string),
		log:   log.With(zap.String("repository", "booking")),
	}
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPNR[booking.PNR]; exists {
		r.log.Error("PNR already registered", zap.String("pnr", booking.PNR))
		return fmt.Errorf("create booking %s: %w", booking.PNR, ErrDuplicate)
	}
	if _, exists := r.byID[booking.ID]; exists {
		return fmt.Errorf("create booking id %s: %w", booking.ID, ErrDuplicate)
	}

	r.byPNR[booking.PNR] = booking.Clone()
	r.byID[booking.ID] = booking.PNR
	r.order = append(r.order, booking.PNR)
	return nil
}

func (r *bookingRepository) Update(ctx context.Context, booking *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byPNR[booking.PNR]; !exists {
		return fmt.Errorf("update booking %s: not registered", booking.PNR)
	}
	r.byPNR[booking.PNR] = booking.Clone()
	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	pnr, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return r.byPNR[pnr].Clone(), nil
}

func (r *bookingRepository) FindByPNR(ctx context.Context, pnr string) (*entity.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, ok := r.byPNR[pnr]
	if !ok {
		return nil, nil
	}
	return booking.Clone(), nil
}

func (r *bookingRepository) ExistsPNR(ctx context.Context, pnr string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byPNR[pnr]
	return ok, nil
}

// FindAll returns bookings in creation order with the total count before
// paging.
func (r *bookingRepository) FindAll(ctx context.Context, filter BookingFilter) ([]*entity.Booking, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*entity.Booking
	for _, pnr := range r.order {
		b := r.byPNR[pnr]
		if filter.State != "" && b.State != filter.State {
			continue
		}
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		matched = append(matched, b)
	}

	total := int64(len(matched))
	start := filter.Offset
	if start < 0 {
		start = 0
	}
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if filter.Limit > 0 && start+filter.Limit < end {
		end = start + filter.Limit
	}

	bookings := make([]*entity.Booking, 0, end-start)
	for _, b := range matched[start:end] {
		bookings = append(bookings, b.Clone())
	}
	return bookings, total, nil
}
