package repository

import (
	"context"
	"fmt"
	"sync"

	"transit-booking/internal/data/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SeatRepository stores the seat table and the lock index. Callers that
// need check-then-commit across several seats serialize above it.
type SeatRepository interface {
	ReplaceTrip(ctx context.Context, tripID string, seats []entity.SeatRecord) error
	FindByTrip(ctx context.Context, tripID string) ([]entity.SeatRecord, error)
	FindSeat(ctx context.Context, tripID, seatID string) (*entity.SeatRecord, error)
	UpdateSeats(ctx context.Context, seats []entity.SeatRecord) error

	SaveLock(ctx context.Context, lock *entity.SeatLock) error
	FindLock(ctx context.Context, id uuid.UUID) (*entity.SeatLock, error)
	FindHeldLockByUser(ctx context.Context, userID string) (*entity.SeatLock, error)
	FindHeldLocksByTrip(ctx context.Context, tripID string) ([]*entity.SeatLock, error)
}

type tripSeats struct {
	order   []string
	records map[string]entity.SeatRecord
}

type seatRepository struct {
	mu     sync.RWMutex
	trips  map[string]*tripSeats
	locks  map[uuid.UUID]*entity.SeatLock
	byUser map[string]uuid.UUID // user -> HELD lock
	log    *zap.Logger
}

func NewSeatRepository(log *zap.Logger) SeatRepository {
	return &seatRepository{
		trips:  make(map[string]*tripSeats),
		locks:  make(map[uuid.UUID]*entity.SeatLock),
		byUser: make(map[string]uuid.UUID),
		log:    log.With(zap.String("repository", "seat")),
	}
}

func (r *seatRepository) ReplaceTrip(ctx context.Context, tripID string, seats []entity.SeatRecord) error {
	ts := &tripSeats{
		order:   make([]string, 0, len(seats)),
		records: make(map[string]entity.SeatRecord, len(seats)),
	}
	for _, s := range seats {
		if s.TripID != tripID {
			return fmt.Errorf("replace trip %s: seat %s belongs to trip %s", tripID, s.SeatID, s.TripID)
		}
		if _, dup := ts.records[s.SeatID]; dup {
			return fmt.Errorf("replace trip %s: seat %s: %w", tripID, s.SeatID, ErrDuplicate)
		}
		ts.order = append(ts.order, s.SeatID)
		ts.records[s.SeatID] = s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.trips[tripID] = ts
	return nil
}

// FindByTrip returns seats in layout order, or nil if the trip was never
// initialized.
func (r *seatRepository) FindByTrip(ctx context.Context, tripID string) ([]entity.SeatRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ts, ok := r.trips[tripID]
	if !ok {
		return nil, nil
	}

	seats := make([]entity.SeatRecord, 0, len(ts.order))
	for _, id := range ts.order {
		seats = append(seats, ts.records[id])
	}
	return seats, nil
}

func (r *seatRepository) FindSeat(ctx context.Context, tripID, seatID string) (*entity.SeatRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ts, ok := r.trips[tripID]
	if !ok {
		return nil, nil
	}
	rec, ok := ts.records[seatID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// UpdateSeats writes all records or none.
func (r *seatRepository) UpdateSeats(ctx context.Context, seats []entity.SeatRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range seats {
		ts, ok := r.trips[s.TripID]
		if !ok {
			return fmt.Errorf("update seat %s: trip not initialized", entity.SeatKey(s.TripID, s.SeatID))
		}
		if _, ok := ts.records[s.SeatID]; !ok {
			return fmt.Errorf("update seat %s: unknown seat", entity.SeatKey(s.TripID, s.SeatID))
		}
	}
	for _, s := range seats {
		r.trips[s.TripID].records[s.SeatID] = s
	}
	return nil
}

func (r *seatRepository) SaveLock(ctx context.Context, lock *entity.SeatLock) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := lock.Clone()
	r.locks[lock.ID] = stored

	if current, ok := r.byUser[lock.UserID]; ok && current == lock.ID && lock.Status != entity.LockHeld {
		delete(r.byUser, lock.UserID)
	}
	if lock.Status == entity.LockHeld {
		r.byUser[lock.UserID] = lock.ID
	}
	return nil
}

func (r *seatRepository) FindLock(ctx context.Context, id uuid.UUID) (*entity.SeatLock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lock, ok := r.locks[id]
	if !ok {
		return nil, nil
	}
	return lock.Clone(), nil
}

func (r *seatRepository) FindHeldLockByUser(ctx context.Context, userID string) (*entity.SeatLock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUser[userID]
	if !ok {
		return nil, nil
	}
	lock := r.locks[id]
	if lock == nil || lock.Status != entity.LockHeld {
		return nil, nil
	}
	return lock.Clone(), nil
}

func (r *seatRepository) FindHeldLocksByTrip(ctx context.Context, tripID string) ([]*entity.SeatLock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var locks []*entity.SeatLock
	for _, id := range r.byUser {
		lock := r.locks[id]
		if lock != nil && lock.TripID == tripID && lock.Status == entity.LockHeld {
			locks = append(locks, lock.Clone())
		}
	}
	return locks, nil
}
