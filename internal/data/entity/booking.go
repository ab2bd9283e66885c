package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingState string

const (
	BookingInitiated         BookingState = "INITIATED"
	BookingAwaitingPayment   BookingState = "AWAITING_PAYMENT"
	BookingPaid              BookingState = "PAID"
	BookingTicketed          BookingState = "TICKETED"
	BookingCancelled         BookingState = "CANCELLED"
	BookingExpired           BookingState = "EXPIRED"
	BookingRefunded          BookingState = "REFUNDED"
	BookingPartiallyRefunded BookingState = "PARTIALLY_REFUNDED"
	BookingNoShow            BookingState = "NO_SHOW"
	BookingPaidNoSeat        BookingState = "PAID_NO_SEAT"
)

var BookingStates = []BookingState{
	BookingInitiated,
	BookingAwaitingPayment,
	BookingPaid,
	BookingTicketed,
	BookingCancelled,
	BookingExpired,
	BookingRefunded,
	BookingPartiallyRefunded,
	BookingNoShow,
	BookingPaidNoSeat,
}

func (s BookingState) Valid() bool {
	for _, known := range BookingStates {
		if s == known {
			return true
		}
	}
	return false
}

// FareBreakdown amounts are whole currency units. GrossFare always equals
// BaseFare - Discount + RegulatoryFee + TransactionFee + Commission.
type FareBreakdown struct {
	BaseFare       int64  `cbor:"base_fare" json:"base_fare"`
	Discount       int64  `cbor:"discount" json:"discount"`
	RegulatoryFee  int64  `cbor:"regulatory_fee" json:"regulatory_fee"`
	TransactionFee int64  `cbor:"transaction_fee" json:"transaction_fee"`
	Commission     int64  `cbor:"commission" json:"commission"`
	GrossFare      int64  `cbor:"gross_fare" json:"gross_fare"`
	PromoCode      string `cbor:"promo_code,omitempty" json:"promo_code,omitempty"`
}

func (f FareBreakdown) ComponentSum() int64 {
	return f.BaseFare - f.Discount + f.RegulatoryFee + f.TransactionFee + f.Commission
}

type Passenger struct {
	Name     string
	Phone    string
	Email    string
	IDNumber string
}

type Booking struct {
	Base
	PNR         string
	TripID      string
	UserID      string
	LockID      uuid.UUID
	Passenger   Passenger
	SeatNumbers []string
	Fare        FareBreakdown
	State       BookingState
	Channel     Channel
	Tickets     []Ticket
}

func (b *Booking) Clone() *Booking {
	c := *b
	c.SeatNumbers = append([]string(nil), b.SeatNumbers...)
	c.Tickets = append([]Ticket(nil), b.Tickets...)
	return &c
}

type TicketStatus string

const (
	TicketIssued   TicketStatus = "ISSUED"
	TicketVoid     TicketStatus = "VOID"
	TicketRefunded TicketStatus = "REFUNDED"
)

type Ticket struct {
	ID            uuid.UUID
	PNR           string
	TicketNumber  string
	SeatNumber    string
	PassengerName string
	TripID        string
	IssuedAt      time.Time
	Status        TicketStatus
	QRCode        string
}
