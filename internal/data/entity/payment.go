package entity

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentCreated   PaymentStatus = "CREATED"
	PaymentPending   PaymentStatus = "PENDING"
	PaymentSucceeded PaymentStatus = "SUCCEEDED"
	PaymentFailed    PaymentStatus = "FAILED"
	PaymentExpired   PaymentStatus = "EXPIRED"
	PaymentReversed  PaymentStatus = "REVERSED"
)

// Terminal reports whether no further settlement may change the status.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentSucceeded, PaymentFailed, PaymentExpired, PaymentReversed:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodSTKPush      PaymentMethod = "STK_PUSH"
	MethodCard         PaymentMethod = "CARD"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodSTKPush, MethodCard, MethodBankTransfer:
		return true
	}
	return false
}

type PaymentIntent struct {
	Base
	BookingID        uuid.UUID
	PNR              string
	Amount           int64
	Currency         string
	Method           PaymentMethod
	Status           PaymentStatus
	IdempotencyKey   string
	GatewayReference string
	Phone            string
	ExpiresAt        time.Time
	SettledAt        *time.Time
}

func (p *PaymentIntent) Clone() *PaymentIntent {
	c := *p
	if p.SettledAt != nil {
		t := *p.SettledAt
		c.SettledAt = &t
	}
	return &c
}
