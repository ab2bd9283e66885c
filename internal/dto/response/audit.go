package response

import (
	"time"

	"transit-booking/internal/data/entity"
)

// AuditEntryResponse omits the raw CBOR payload; Verify works on the
// stored form.
type AuditEntryResponse struct {
	ID        string            `json:"id"`
	Seq       uint64            `json:"seq"`
	Timestamp time.Time         `json:"timestamp"`
	Event     entity.AuditEvent `json:"event"`
	BookingID string            `json:"booking_id,omitempty"`
	PNR       string            `json:"pnr,omitempty"`
	ActorID   string            `json:"actor_id"`
	ActorType entity.ActorType  `json:"actor_type"`
	Details   map[string]any    `json:"details,omitempty"`
	Immutable bool              `json:"immutable"`
	PrevHash  string            `json:"prev_hash"`
	Hash      string            `json:"hash"`
}

func AuditEntriesToResponse(entries []*entity.AuditLogEntry) []AuditEntryResponse {
	out := make([]AuditEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AuditEntryResponse{
			ID:        e.ID.String(),
			Seq:       e.Seq,
			Timestamp: e.Timestamp,
			Event:     e.Event,
			BookingID: e.BookingID,
			PNR:       e.PNR,
			ActorID:   e.ActorID,
			ActorType: e.ActorType,
			Details:   e.Details,
			Immutable: e.Immutable,
			PrevHash:  e.PrevHash,
			Hash:      e.Hash,
		})
	}
	return out
}
