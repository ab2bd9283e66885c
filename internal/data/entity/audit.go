package entity

import (
	"time"

	"github.com/google/uuid"
)

type AuditEvent string

const (
	EventBookingCreated       AuditEvent = "BOOKING_CREATED"
	EventBookingStateChanged  AuditEvent = "BOOKING_STATE_CHANGED"
	EventRefundInitiated      AuditEvent = "REFUND_INITIATED"
	EventPaymentIntentCreated AuditEvent = "PAYMENT_INTENT_CREATED"
	EventPaymentPending       AuditEvent = "PAYMENT_PENDING"
	EventPaymentSucceeded     AuditEvent = "PAYMENT_SUCCEEDED"
	EventPaymentFailed        AuditEvent = "PAYMENT_FAILED"
	EventPaymentExpired       AuditEvent = "PAYMENT_EXPIRED"
)

// AuditLogEntry is append-only. Hash chains each entry to its
// predecessor: Hash = BLAKE3(PrevHash || Payload).
type AuditLogEntry struct {
	ID        uuid.UUID
	Seq       uint64
	Timestamp time.Time
	Event     AuditEvent
	BookingID string
	PNR       string
	ActorID   string
	ActorType ActorType
	Details   map[string]any
	Immutable bool
	Payload   []byte
	PrevHash  string
	Hash      string
}

type AuditFilter struct {
	BookingID string
	PNR       string
	Event     AuditEvent
	ActorID   string
}

func (f AuditFilter) Match(e *AuditLogEntry) bool {
	if f.BookingID != "" && e.BookingID != f.BookingID {
		return false
	}
	if f.PNR != "" && e.PNR != f.PNR {
		return false
	}
	if f.Event != "" && e.Event != f.Event {
		return false
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	return true
}
