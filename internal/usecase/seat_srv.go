package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"
	"transit-booking/pkg/clock"
	"transit-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HoldResult reports a hold attempt. Contention is an expected outcome, so
// conflicts come back as data rather than as an error.
type HoldResult struct {
	Success       bool
	LockID        uuid.UUID
	ExpiresAt     time.Time
	ConflictSeats []string // "<tripID>-<seatID>"
}

type SeatSummary struct {
	TripID   string `json:"trip_id"`
	Total    int    `json:"total"`
	Free     int    `json:"free"`
	Held     int    `json:"held"`
	Occupied int    `json:"occupied"`
	Blocked  int    `json:"blocked"`
}

type SeatService interface {
	Initialize(ctx context.Context, tripID string, layout entity.SeatLayout) error
	InitializeFromCatalog(ctx context.Context) error

	HoldSeats(ctx context.Context, tripID string, seatIDs []string, userID string, channel entity.Channel) (*HoldResult, error)
	ExtendLock(ctx context.Context, lockID uuid.UUID, extra time.Duration) bool
	ConvertToOccupied(ctx context.Context, lockID uuid.UUID, pnr string) bool
	ReleaseUserLocks(ctx context.Context, userID string) error
	ReleaseLock(ctx context.Context, lockID uuid.UUID) bool

	GetSeats(ctx context.Context, tripID string) ([]entity.SeatRecord, error)
	GetSeatStatus(ctx context.Context, tripID string) (map[string]entity.SeatStatus, error)
	GetSeatSummary(ctx context.Context, tripID string) (*SeatSummary, error)
	GetLock(ctx context.Context, lockID uuid.UUID) (*entity.SeatLock, error)
	GetLockCountdown(ctx context.Context, lockID uuid.UUID) time.Duration
	GetUserActiveLock(ctx context.Context, userID string) (*entity.SeatLock, error)
	LockHolds(ctx context.Context, lockID uuid.UUID, tripID string, seatIDs []string) bool
	ClaimLock(ctx context.Context, lockID uuid.UUID, tripID string, seatIDs []string, userID, pnr string) error
	ReleaseClaim(ctx context.Context, lockID uuid.UUID, pnr string)

	// Shutdown stops every pending expiry timer.
	Shutdown()
}

// seatService serializes every check-and-mutate step behind one mutex.
// Expiry timers take the same mutex and re-check lock status first.
type seatService struct {
	mu     sync.Mutex
	trips  repository.TripRepository
	repo   repository.SeatRepository
	clock  clock.Clock
	config utils.BookingConfig
	timers map[uuid.UUID]*clock.Timer
	log    *zap.Logger
}

func NewSeatService(trips repository.TripRepository, repo repository.SeatRepository, clk clock.Clock, config utils.BookingConfig, log *zap.Logger) SeatService {
	return &seatService{
		trips:  trips,
		repo:   repo,
		clock:  clk,
		config: config,
		timers: make(map[uuid.UUID]*clock.Timer),
		log:    log.With(zap.String("service", "seat")),
	}
}

func (s *seatService) lockTTL(channel entity.Channel) time.Duration {
	if channel == entity.ChannelAgent {
		return s.config.AgentLockTTL
	}
	return s.config.LockTTL
}

// ==================== INITIALIZATION ====================

// Initialize is an operational reset: every seat is rebuilt from the
// layout and any HELD lock on the trip is replaced.
func (s *seatService) Initialize(ctx context.Context, tripID string, layout entity.SeatLayout) error {
	if tripID == "" {
		return validationErr("trip id is required")
	}

	seatIDs := layout.Seats()
	if len(seatIDs) == 0 {
		return validationErr("trip %s: seat layout is empty", tripID)
	}

	occupied := toSet(layout.Occupied)
	blocked := toSet(layout.Blocked)

	records := make([]entity.SeatRecord, 0, len(seatIDs))
	for _, id := range seatIDs {
		rec := entity.SeatRecord{TripID: tripID, SeatID: id, Status: entity.SeatFree}
		if _, ok := blocked[id]; ok {
			rec.Status = entity.SeatBlocked
		} else if _, ok := occupied[id]; ok {
			rec.Status = entity.SeatOccupied
		}
		records = append(records, rec)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	held, err := s.repo.FindHeldLocksByTrip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("find held locks for trip %s: %w", tripID, err)
	}
	for _, lock := range held {
		lock.Status = entity.LockReplaced
		if err := s.repo.SaveLock(ctx, lock); err != nil {
			return fmt.Errorf("replace lock %s: %w", lock.ID, err)
		}
		s.stopTimerLocked(lock.ID)
	}

	if err := s.repo.ReplaceTrip(ctx, tripID, records); err != nil {
		s.log.Error("Failed to initialize trip seats", zap.Error(err), zap.String("trip_id", tripID))
		return fmt.Errorf("initialize trip %s: %w", tripID, err)
	}

	s.log.Info("Trip seats initialized",
		zap.String("trip_id", tripID),
		zap.Int("seats", len(records)),
		zap.Int("replaced_locks", len(held)),
	)
	return nil
}

func (s *seatService) InitializeFromCatalog(ctx context.Context) error {
	trips, err := s.trips.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("list trips: %w", err)
	}
	for _, trip := range trips {
		if err := s.Initialize(ctx, trip.ID, trip.Layout); err != nil {
			return err
		}
	}
	return nil
}

// ==================== HOLDS ====================

func (s *seatService) HoldSeats(ctx context.Context, tripID string, seatIDs []string, userID string, channel entity.Channel) (*HoldResult, error) {
	seatIDs = utils.UniqueStrings(seatIDs)
	if len(seatIDs) == 0 {
		return nil, validationErr("at least one seat is required")
	}
	if userID == "" {
		return nil, validationErr("user id is required")
	}
	if !channel.Valid() {
		return nil, validationErr("unknown channel %q", channel)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seats, err := s.repo.FindByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("load seats for trip %s: %w", tripID, err)
	}
	if seats == nil {
		return nil, validationErr("trip %s has no seat inventory", tripID)
	}
	byID := make(map[string]entity.SeatRecord, len(seats))
	for _, rec := range seats {
		byID[rec.SeatID] = rec
	}

	prior, err := s.repo.FindHeldLockByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find active lock for user %s: %w", userID, err)
	}

	var (
		unknown   []string
		conflicts []string
	)
	for _, id := range seatIDs {
		rec, ok := byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		switch rec.Status {
		case entity.SeatFree:
		case entity.SeatHeld:
			if prior == nil || rec.LockID != prior.ID {
				conflicts = append(conflicts, entity.SeatKey(tripID, id))
			}
		default:
			conflicts = append(conflicts, entity.SeatKey(tripID, id))
		}
	}
	if len(unknown) > 0 {
		return nil, validationErr("trip %s has no seats %v", tripID, unknown)
	}
	if len(conflicts) > 0 {
		s.log.Info("Hold rejected",
			zap.String("trip_id", tripID),
			zap.String("user_id", userID),
			zap.Strings("conflicts", conflicts),
		)
		return &HoldResult{Success: false, ConflictSeats: conflicts}, nil
	}

	var updates []entity.SeatRecord

	// Free the prior lock's seats as they stood before this request. Seats
	// requested again are re-held below; later updates win.
	if prior != nil {
		freed, err := s.seatsHeldByLocked(ctx, prior)
		if err != nil {
			return nil, err
		}
		updates = append(updates, freed...)
		prior.Status = entity.LockReplaced
	}

	now := s.clock.Now()
	ttl := s.lockTTL(channel)
	lock := &entity.SeatLock{
		BaseSimple: entity.BaseSimple{ID: uuid.New(), CreatedAt: now},
		TripID:     tripID,
		SeatIDs:    seatIDs,
		UserID:     userID,
		Channel:    channel,
		ExpiresAt:  now.Add(ttl),
		Status:     entity.LockHeld,
	}
	for _, id := range seatIDs {
		updates = append(updates, entity.SeatRecord{TripID: tripID, SeatID: id, Status: entity.SeatHeld, LockID: lock.ID})
	}

	if err := s.repo.UpdateSeats(ctx, updates); err != nil {
		s.log.Error("Failed to commit hold", zap.Error(err), zap.String("trip_id", tripID))
		return nil, fmt.Errorf("commit hold on trip %s: %w", tripID, err)
	}
	if prior != nil {
		if err := s.repo.SaveLock(ctx, prior); err != nil {
			return nil, fmt.Errorf("replace lock %s: %w", prior.ID, err)
		}
		s.stopTimerLocked(prior.ID)
	}
	if err := s.repo.SaveLock(ctx, lock); err != nil {
		return nil, fmt.Errorf("save lock %s: %w", lock.ID, err)
	}
	s.armTimerLocked(lock.ID, ttl)

	fields := []zap.Field{
		zap.String("lock_id", lock.ID.String()),
		zap.String("trip_id", tripID),
		zap.String("user_id", userID),
		zap.Strings("seats", seatIDs),
		zap.Duration("ttl", ttl),
	}
	if prior != nil {
		fields = append(fields, zap.String("replaced_lock_id", prior.ID.String()))
	}
	s.log.Info("Seats held", fields...)

	return &HoldResult{Success: true, LockID: lock.ID, ExpiresAt: lock.ExpiresAt}, nil
}

func (s *seatService) ExtendLock(ctx context.Context, lockID uuid.UUID, extra time.Duration) bool {
	if extra <= 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := s.repo.FindLock(ctx, lockID)
	if err != nil || lock == nil || lock.Status != entity.LockHeld {
		return false
	}

	now := s.clock.Now()
	if !now.Before(lock.ExpiresAt) {
		s.expireLocked(ctx, lock)
		return false
	}

	lock.ExpiresAt = lock.ExpiresAt.Add(extra)
	if err := s.repo.SaveLock(ctx, lock); err != nil {
		s.log.Error("Failed to extend lock", zap.Error(err), zap.String("lock_id", lockID.String()))
		return false
	}
	s.armTimerLocked(lockID, lock.ExpiresAt.Sub(now))

	s.log.Info("Lock extended",
		zap.String("lock_id", lockID.String()),
		zap.Time("expires_at", lock.ExpiresAt),
	)
	return true
}

func (s *seatService) ConvertToOccupied(ctx context.Context, lockID uuid.UUID, pnr string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := s.repo.FindLock(ctx, lockID)
	if err != nil || lock == nil || lock.Status != entity.LockHeld {
		return false
	}
	if lock.PNR != "" && lock.PNR != pnr {
		s.log.Warn("Conversion refused: lock bound to another booking",
			zap.String("lock_id", lockID.String()),
			zap.String("bound_pnr", lock.PNR),
			zap.String("pnr", pnr),
		)
		return false
	}
	// The timer may not have run yet; a due lock is already expired.
	if !s.clock.Now().Before(lock.ExpiresAt) {
		s.expireLocked(ctx, lock)
		return false
	}

	updates := make([]entity.SeatRecord, 0, len(lock.SeatIDs))
	for _, id := range lock.SeatIDs {
		updates = append(updates, entity.SeatRecord{TripID: lock.TripID, SeatID: id, Status: entity.SeatOccupied})
	}
	if err := s.repo.UpdateSeats(ctx, updates); err != nil {
		s.log.Error("Failed to convert lock", zap.Error(err), zap.String("lock_id", lockID.String()))
		return false
	}

	lock.Status = entity.LockConverted
	lock.PNR = pnr
	if err := s.repo.SaveLock(ctx, lock); err != nil {
		s.log.Error("Failed to save converted lock", zap.Error(err), zap.String("lock_id", lockID.String()))
		return false
	}
	s.stopTimerLocked(lockID)

	s.log.Info("Lock converted to occupied",
		zap.String("lock_id", lockID.String()),
		zap.String("pnr", pnr),
		zap.Strings("seats", lock.SeatIDs),
	)
	return true
}

// ReleaseUserLocks is a no-op when the user holds nothing, including when
// their lock already expired.
func (s *seatService) ReleaseUserLocks(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := s.repo.FindHeldLockByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("find active lock for user %s: %w", userID, err)
	}
	if lock == nil {
		return nil
	}
	return s.releaseLocked(ctx, lock)
}

func (s *seatService) ReleaseLock(ctx context.Context, lockID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := s.repo.FindLock(ctx, lockID)
	if err != nil || lock == nil || lock.Status != entity.LockHeld {
		return false
	}
	return s.releaseLocked(ctx, lock) == nil
}

func (s *seatService) releaseLocked(ctx context.Context, lock *entity.SeatLock) error {
	freed, err := s.seatsHeldByLocked(ctx, lock)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateSeats(ctx, freed); err != nil {
		return fmt.Errorf("release lock %s: %w", lock.ID, err)
	}

	lock.Status = entity.LockReplaced
	if err := s.repo.SaveLock(ctx, lock); err != nil {
		return fmt.Errorf("release lock %s: %w", lock.ID, err)
	}
	s.stopTimerLocked(lock.ID)

	s.log.Info("Lock released",
		zap.String("lock_id", lock.ID.String()),
		zap.String("user_id", lock.UserID),
		zap.Int("freed", len(freed)),
	)
	return nil
}

// seatsHeldByLocked returns FREE records for the lock's seats that are
// still HELD by it.
func (s *seatService) seatsHeldByLocked(ctx context.Context, lock *entity.SeatLock) ([]entity.SeatRecord, error) {
	var freed []entity.SeatRecord
	for _, id := range lock.SeatIDs {
		rec, err := s.repo.FindSeat(ctx, lock.TripID, id)
		if err != nil {
			return nil, fmt.Errorf("load seat %s: %w", entity.SeatKey(lock.TripID, id), err)
		}
		if rec == nil || rec.Status != entity.SeatHeld || rec.LockID != lock.ID {
			continue
		}
		freed = append(freed, entity.SeatRecord{TripID: lock.TripID, SeatID: id, Status: entity.SeatFree})
	}
	return freed, nil
}

// ==================== EXPIRY ====================

func (s *seatService) armTimerLocked(lockID uuid.UUID, d time.Duration) {
	if t, ok := s.timers[lockID]; ok {
		t.Reset(d)
		return
	}
	s.timers[lockID] = s.clock.AfterFunc(d, func() { s.onTimer(lockID) })
}

func (s *seatService) stopTimerLocked(lockID uuid.UUID) {
	if t, ok := s.timers[lockID]; ok {
		t.Stop()
		delete(s.timers, lockID)
	}
}

func (s *seatService) onTimer(lockID uuid.UUID) {
	ctx := context.Background()

	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := s.repo.FindLock(ctx, lockID)
	if err != nil {
		s.log.Error("Expiry timer failed to load lock", zap.Error(err), zap.String("lock_id", lockID.String()))
		return
	}
	if lock == nil || lock.Status != entity.LockHeld {
		delete(s.timers, lockID)
		return
	}

	// Extended since this timer was armed.
	if remaining := lock.ExpiresAt.Sub(s.clock.Now()); remaining > 0 {
		s.armTimerLocked(lockID, remaining)
		return
	}

	s.expireLocked(ctx, lock)
}

func (s *seatService) expireLocked(ctx context.Context, lock *entity.SeatLock) {
	freed, err := s.seatsHeldByLocked(ctx, lock)
	if err != nil {
		s.log.Error("Failed to expire lock", zap.Error(err), zap.String("lock_id", lock.ID.String()))
		return
	}
	if err := s.repo.UpdateSeats(ctx, freed); err != nil {
		s.log.Error("Failed to free expired seats", zap.Error(err), zap.String("lock_id", lock.ID.String()))
		return
	}

	lock.Status = entity.LockExpired
	if err := s.repo.SaveLock(ctx, lock); err != nil {
		s.log.Error("Failed to save expired lock", zap.Error(err), zap.String("lock_id", lock.ID.String()))
		return
	}
	s.stopTimerLocked(lock.ID)

	s.log.Info("Lock expired",
		zap.String("lock_id", lock.ID.String()),
		zap.String("trip_id", lock.TripID),
		zap.String("user_id", lock.UserID),
		zap.Int("freed", len(freed)),
	)
}

func (s *seatService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// ==================== QUERIES ====================

func (s *seatService) GetSeats(ctx context.Context, tripID string) ([]entity.SeatRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seats, err := s.repo.FindByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("load seats for trip %s: %w", tripID, err)
	}
	if seats == nil {
		return nil, fmt.Errorf("seat inventory for trip %s: %w", tripID, ErrNotFound)
	}
	return seats, nil
}

func (s *seatService) GetSeatStatus(ctx context.Context, tripID string) (map[string]entity.SeatStatus, error) {
	seats, err := s.GetSeats(ctx, tripID)
	if err != nil {
		return nil, err
	}

	status := make(map[string]entity.SeatStatus, len(seats))
	for _, rec := range seats {
		status[rec.SeatID] = rec.Status
	}
	return status, nil
}

func (s *seatService) GetSeatSummary(ctx context.Context, tripID string) (*SeatSummary, error) {
	seats, err := s.GetSeats(ctx, tripID)
	if err != nil {
		return nil, err
	}

	summary := &SeatSummary{TripID: tripID, Total: len(seats)}
	for _, rec := range seats {
		switch rec.Status {
		case entity.SeatFree:
			summary.Free++
		case entity.SeatHeld:
			summary.Held++
		case entity.SeatOccupied:
			summary.Occupied++
		case entity.SeatBlocked:
			summary.Blocked++
		}
	}
	return summary, nil
}

func (s *seatService) GetLock(ctx context.Context, lockID uuid.UUID) (*entity.SeatLock, error) {
	lock, err := s.repo.FindLock(ctx, lockID)
	if err != nil {
		return nil, fmt.Errorf("find lock %s: %w", lockID, err)
	}
	if lock == nil {
		return nil, fmt.Errorf("lock %s: %w", lockID, ErrNotFound)
	}
	return lock, nil
}

func (s *seatService) GetLockCountdown(ctx context.Context, lockID uuid.UUID) time.Duration {
	lock, err := s.repo.FindLock(ctx, lockID)
	if err != nil || lock == nil || lock.Status != entity.LockHeld {
		return 0
	}
	remaining := lock.ExpiresAt.Sub(s.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *seatService) GetUserActiveLock(ctx context.Context, userID string) (*entity.SeatLock, error) {
	lock, err := s.repo.FindHeldLockByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find active lock for user %s: %w", userID, err)
	}
	return lock, nil
}

func (s *seatService) LockHolds(ctx context.Context, lockID uuid.UUID, tripID string, seatIDs []string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := s.repo.FindLock(ctx, lockID)
	if err != nil || lock == nil || lock.Status != entity.LockHeld {
		return false
	}
	if lock.TripID != tripID || !s.clock.Now().Before(lock.ExpiresAt) {
		return false
	}
	return lock.Covers(utils.UniqueStrings(seatIDs))
}

// ClaimLock binds a live hold to a booking. The hold must belong to userID
// and must not already back another booking.
func (s *seatService) ClaimLock(ctx context.Context, lockID uuid.UUID, tripID string, seatIDs []string, userID, pnr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := s.repo.FindLock(ctx, lockID)
	if err != nil {
		return fmt.Errorf("find lock %s: %w", lockID, err)
	}
	if lock == nil || lock.Status != entity.LockHeld || lock.TripID != tripID {
		return validationErr("hold %s is not live on trip %s", lockID, tripID)
	}
	if !s.clock.Now().Before(lock.ExpiresAt) {
		s.expireLocked(ctx, lock)
		return validationErr("hold %s has expired", lockID)
	}
	if !lock.Covers(utils.UniqueStrings(seatIDs)) {
		return validationErr("hold %s does not cover seats %v", lockID, seatIDs)
	}
	if lock.UserID != userID {
		s.log.Warn("Claim refused: hold owned by another user",
			zap.String("lock_id", lockID.String()),
			zap.String("user_id", userID),
		)
		return validationErr("hold %s does not belong to user %s", lockID, userID)
	}
	if lock.PNR != "" && lock.PNR != pnr {
		return validationErr("hold %s already backs booking %s", lockID, lock.PNR)
	}

	lock.PNR = pnr
	if err := s.repo.SaveLock(ctx, lock); err != nil {
		return fmt.Errorf("claim lock %s: %w", lockID, err)
	}
	return nil
}

// ReleaseClaim undoes ClaimLock when the booking was never registered.
func (s *seatService) ReleaseClaim(ctx context.Context, lockID uuid.UUID, pnr string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, err := s.repo.FindLock(ctx, lockID)
	if err != nil || lock == nil || lock.Status != entity.LockHeld || lock.PNR != pnr {
		return
	}
	lock.PNR = ""
	if err := s.repo.SaveLock(ctx, lock); err != nil {
		s.log.Error("Failed to release lock claim", zap.Error(err), zap.String("lock_id", lockID.String()))
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
