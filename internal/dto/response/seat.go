package response

import (
	"time"

	"transit-booking/internal/data/entity"
)

type SeatResponse struct {
	SeatID string            `json:"seat_id"`
	Status entity.SeatStatus `json:"status"`
}

type SeatMapResponse struct {
	TripID   string         `json:"trip_id"`
	Total    int            `json:"total"`
	Free     int            `json:"free"`
	Held     int            `json:"held"`
	Occupied int            `json:"occupied"`
	Blocked  int            `json:"blocked"`
	Seats    []SeatResponse `json:"seats"`
}

type HoldResponse struct {
	Success          bool      `json:"success"`
	LockID           string    `json:"lock_id,omitempty"`
	ExpiresAt        time.Time `json:"expires_at,omitempty"`
	RemainingSeconds int64     `json:"remaining_seconds,omitempty"`
	ConflictSeats    []string  `json:"conflict_seats,omitempty"`
}

type LockResponse struct {
	ID               string            `json:"id"`
	TripID           string            `json:"trip_id"`
	SeatIDs          []string          `json:"seat_ids"`
	UserID           string            `json:"user_id"`
	Channel          entity.Channel    `json:"channel"`
	PNR              string            `json:"pnr,omitempty"`
	Status           entity.LockStatus `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	ExpiresAt        time.Time         `json:"expires_at"`
	RemainingSeconds int64             `json:"remaining_seconds"`
}

// SeatsToResponse drops the internal lock reference; callers only see
// status.
func SeatsToResponse(seats []entity.SeatRecord) []SeatResponse {
	out := make([]SeatResponse, 0, len(seats))
	for _, s := range seats {
		out = append(out, SeatResponse{SeatID: s.SeatID, Status: s.Status})
	}
	return out
}

func LockToResponse(lock *entity.SeatLock, remaining time.Duration) LockResponse {
	return LockResponse{
		ID:               lock.ID.String(),
		TripID:           lock.TripID,
		SeatIDs:          lock.SeatIDs,
		UserID:           lock.UserID,
		Channel:          lock.Channel,
		PNR:              lock.PNR,
		Status:           lock.Status,
		CreatedAt:        lock.CreatedAt,
		ExpiresAt:        lock.ExpiresAt,
		RemainingSeconds: int64(remaining / time.Second),
	}
}
