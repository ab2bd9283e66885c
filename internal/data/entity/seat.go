package entity

import (
	"time"

	"github.com/google/uuid"
)

type SeatStatus string

const (
	SeatFree     SeatStatus = "FREE"
	SeatHeld     SeatStatus = "HELD"
	SeatOccupied SeatStatus = "OCCUPIED"
	SeatBlocked  SeatStatus = "BLOCKED"
)

// SeatRecord is the single source of truth for one seat on one trip.
type SeatRecord struct {
	TripID string
	SeatID string
	Status SeatStatus
	LockID uuid.UUID // set while HELD
}

// SeatKey is the trip-qualified seat reference used in conflict reports.
func SeatKey(tripID, seatID string) string {
	return tripID + "-" + seatID
}

type LockStatus string

const (
	LockHeld      LockStatus = "HELD"
	LockExpired   LockStatus = "EXPIRED"
	LockReplaced  LockStatus = "REPLACED"
	LockConverted LockStatus = "CONVERTED"
)

type SeatLock struct {
	BaseSimple
	TripID    string
	SeatIDs   []string
	UserID    string
	Channel   Channel
	PNR       string
	ExpiresAt time.Time
	Status    LockStatus
}

// Covers reports whether the lock holds exactly the given seats.
func (l *SeatLock) Covers(seatIDs []string) bool {
	if len(l.SeatIDs) != len(seatIDs) {
		return false
	}
	held := make(map[string]struct{}, len(l.SeatIDs))
	for _, s := range l.SeatIDs {
		held[s] = struct{}{}
	}
	for _, s := range seatIDs {
		if _, ok := held[s]; !ok {
			return false
		}
	}
	return true
}

func (l *SeatLock) Clone() *SeatLock {
	c := *l
	c.SeatIDs = append([]string(nil), l.SeatIDs...)
	return &c
}
