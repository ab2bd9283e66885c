package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"
	"transit-booking/internal/dto/request"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestInitiatePayment(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "1A")

	intent := e.initiate(t, b, entity.MethodSTKPush, "key-1")
	if intent.Status != entity.PaymentCreated || intent.Amount != b.Fare.GrossFare || intent.Currency != "TZS" {
		t.Fatalf("intent = %+v", intent)
	}
	if want := testEpoch.Add(90 * time.Second); !intent.ExpiresAt.Equal(want) {
		t.Fatalf("ExpiresAt = %v, want %v", intent.ExpiresAt, want)
	}
	if got := e.state(t, b.PNR); got != entity.BookingAwaitingPayment {
		t.Fatalf("state = %s, want AWAITING_PAYMENT", got)
	}
	if n := e.auditCount(t, entity.AuditFilter{PNR: b.PNR, Event: entity.EventPaymentIntentCreated}); n != 1 {
		t.Fatalf("PAYMENT_INTENT_CREATED entries = %d", n)
	}

	replay := e.initiate(t, b, entity.MethodSTKPush, "key-1")
	if replay.ID != intent.ID {
		t.Fatalf("replayed key created intent %s, want %s", replay.ID, intent.ID)
	}

	_, err := e.svc.Payment.InitiatePayment(e.ctx, &request.InitiatePaymentRequest{
		PNR:    b.PNR,
		Amount: b.Fare.GrossFare,
		Method: string(entity.MethodCard),
	})
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("second initiate error = %v, want ErrIllegalTransition", err)
	}
}

func TestInitiatePaymentValidation(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "1A")

	tests := []struct {
		name string
		req  request.InitiatePaymentRequest
		want error
	}{
		{"fare mismatch", request.InitiatePaymentRequest{PNR: b.PNR, Amount: b.Fare.GrossFare - 1, Method: "CARD"}, ErrValidation},
		{"stk without phone", request.InitiatePaymentRequest{PNR: b.PNR, Amount: b.Fare.GrossFare, Method: "STK_PUSH"}, ErrValidation},
		{"bad phone", request.InitiatePaymentRequest{PNR: b.PNR, Amount: b.Fare.GrossFare, Method: "STK_PUSH", Phone: "abc"}, ErrValidation},
		{"unknown method", request.InitiatePaymentRequest{PNR: b.PNR, Amount: b.Fare.GrossFare, Method: "CASH"}, ErrValidation},
		{"unknown booking", request.InitiatePaymentRequest{PNR: "LTR0000000000", Amount: 100, Method: "CARD"}, ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if _, err := e.svc.Payment.InitiatePayment(e.ctx, &req); !errors.Is(err, tt.want) {
				t.Fatalf("InitiatePayment() error = %v, want %v", err, tt.want)
			}
		})
	}

	if got := e.state(t, b.PNR); got != entity.BookingInitiated {
		t.Fatalf("rejected payments moved booking to %s", got)
	}
	intents, err := e.svc.Payment.GetIntentsByPNR(e.ctx, b.PNR)
	if err != nil || len(intents) != 0 {
		t.Fatalf("intents = %d, %v", len(intents), err)
	}
}

func TestInitiateCardPaymentCoversHold(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "1C")

	e.initiate(t, b, entity.MethodCard, "")
	if d := e.svc.Seat.GetLockCountdown(e.ctx, b.LockID); d != 10*time.Minute {
		t.Fatalf("hold countdown = %v, want 10m", d)
	}

	e.clock.Advance(9 * time.Minute)
	if got := e.seatStatus(t, "T1", "1C"); got != entity.SeatHeld {
		t.Fatalf("seat = %s during card window, want HELD", got)
	}
}

func TestSettlementIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "2A", "2B")
	intent := e.initiate(t, b, entity.MethodSTKPush, "")

	if _, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentPending, ""); err != nil {
		t.Fatalf("PENDING error = %v", err)
	}
	settled, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentSucceeded, "MPESA-42")
	if err != nil {
		t.Fatalf("SUCCEEDED error = %v", err)
	}
	if settled.Status != entity.PaymentSucceeded || settled.SettledAt == nil || settled.GatewayReference != "MPESA-42" {
		t.Fatalf("settled = %+v", settled)
	}

	before := e.auditCount(t, entity.AuditFilter{})
	again, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentSucceeded, "MPESA-42")
	if err != nil {
		t.Fatalf("repeated SUCCEEDED error = %v", err)
	}
	if again.Status != entity.PaymentSucceeded {
		t.Fatalf("repeated status = %s", again.Status)
	}
	if after := e.auditCount(t, entity.AuditFilter{}); after != before {
		t.Fatalf("repeated settlement wrote audit entries: %d -> %d", before, after)
	}
	if got := e.state(t, b.PNR); got != entity.BookingPaid {
		t.Fatalf("state = %s, want PAID", got)
	}

	if _, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentFailed, ""); !errors.Is(err, ErrIntentAlreadySettled) {
		t.Fatalf("conflicting settlement error = %v, want ErrIntentAlreadySettled", err)
	}

	if n := e.auditCount(t, entity.AuditFilter{PNR: b.PNR, Event: entity.EventPaymentPending}); n != 1 {
		t.Fatalf("PAYMENT_PENDING entries = %d", n)
	}
}

func TestConcurrentSettlementAppliesOnce(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "3A")
	intent := e.initiate(t, b, entity.MethodCard, "")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentSucceeded, "CARD-9"); err != nil {
				t.Errorf("ApplySettlement() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if n := e.auditCount(t, entity.AuditFilter{PNR: b.PNR, Event: entity.EventPaymentSucceeded}); n != 1 {
		t.Fatalf("PAYMENT_SUCCEEDED entries = %d, want 1", n)
	}
	changes, _ := e.svc.Audit.Query(e.ctx, entity.AuditFilter{PNR: b.PNR, Event: entity.EventBookingStateChanged})
	paid := 0
	for _, c := range changes {
		if c.Details["to"] == string(entity.BookingPaid) {
			paid++
		}
	}
	if paid != 1 {
		t.Fatalf("transitions to PAID = %d, want 1", paid)
	}
}

func TestSettlementValidation(t *testing.T) {
	e := newTestEngine(t)

	if _, err := e.svc.Payment.ApplySettlement(e.ctx, uuid.New(), entity.PaymentSucceeded, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown intent error = %v, want ErrNotFound", err)
	}
	if _, err := e.svc.Payment.ApplySettlement(e.ctx, uuid.New(), entity.PaymentReversed, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("REVERSED error = %v, want ErrValidation", err)
	}
}

func TestLateSettlementOnCancelledBookingIsRefunded(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "3A")
	intent := e.initiate(t, b, entity.MethodSTKPush, "")

	if _, err := e.svc.Booking.CancelBooking(e.ctx, b.PNR, "changed plans"); err != nil {
		t.Fatalf("CancelBooking() error = %v", err)
	}

	settled, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentSucceeded, "MPESA-9")
	if err != nil {
		t.Fatalf("ApplySettlement() error = %v", err)
	}
	if settled.Status != entity.PaymentSucceeded {
		t.Fatalf("status = %s", settled.Status)
	}
	if got := e.state(t, b.PNR); got != entity.BookingCancelled {
		t.Fatalf("state = %s, want CANCELLED", got)
	}
	if e.refunder.count() != 1 {
		t.Fatalf("refunds = %d, want 1", e.refunder.count())
	}
	refunds, _ := e.svc.Audit.Query(e.ctx, entity.AuditFilter{PNR: b.PNR, Event: entity.EventRefundInitiated})
	if len(refunds) != 1 || refunds[0].Details["intent_id"] != intent.ID.String() {
		t.Fatalf("REFUND_INITIATED entries = %+v", refunds)
	}

	if _, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentSucceeded, "MPESA-9"); err != nil {
		t.Fatalf("repeated settlement error = %v", err)
	}
	if e.refunder.count() != 1 {
		t.Fatalf("refunds after replay = %d, want 1", e.refunder.count())
	}
}

type failingIntents struct {
	repository.PaymentRepository
}

func (failingIntents) Create(ctx context.Context, intent *entity.PaymentIntent) error {
	return errors.New("intent store unavailable")
}

func TestInitiateFailureRestoresBooking(t *testing.T) {
	e := newTestEngine(t)
	payments := NewPaymentService(failingIntents{e.repo.Payment}, e.svc.Booking, e.svc.Seat, e.svc.Audit, e.clock, testConfig().Payment, zap.NewNop())
	b := e.book(t, "alice", "1D")

	_, err := payments.InitiatePayment(e.ctx, &request.InitiatePaymentRequest{
		PNR:    b.PNR,
		Amount: b.Fare.GrossFare,
		Method: string(entity.MethodCard),
	})
	if err == nil {
		t.Fatal("InitiatePayment() succeeded with a failing intent store")
	}
	if got := e.state(t, b.PNR); got != entity.BookingInitiated {
		t.Fatalf("state = %s, want INITIATED", got)
	}
	changes, _ := e.svc.Audit.Query(e.ctx, entity.AuditFilter{PNR: b.PNR, Event: entity.EventBookingStateChanged})
	if len(changes) != 2 || changes[0].Details["reason"] != "payment initiation failed" {
		t.Fatalf("state changes = %+v", changes)
	}

	e.initiate(t, b, entity.MethodCard, "")
	if got := e.state(t, b.PNR); got != entity.BookingAwaitingPayment {
		t.Fatalf("state after retry = %s, want AWAITING_PAYMENT", got)
	}
}

func TestFailedPaymentCanBeRetried(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "3B")
	first := e.initiate(t, b, entity.MethodSTKPush, "")

	if _, err := e.svc.Payment.ApplySettlement(e.ctx, first.ID, entity.PaymentFailed, "MPESA-X"); err != nil {
		t.Fatalf("FAILED error = %v", err)
	}
	if got := e.state(t, b.PNR); got != entity.BookingAwaitingPayment {
		t.Fatalf("state = %s, want AWAITING_PAYMENT", got)
	}
	if n := e.auditCount(t, entity.AuditFilter{PNR: b.PNR, Event: entity.EventPaymentFailed}); n != 1 {
		t.Fatalf("PAYMENT_FAILED entries = %d", n)
	}

	retry, err := e.svc.Payment.RetryPayment(e.ctx, &request.InitiatePaymentRequest{
		PNR:    b.PNR,
		Amount: b.Fare.GrossFare,
		Method: string(entity.MethodCard),
	})
	if err != nil {
		t.Fatalf("RetryPayment() error = %v", err)
	}
	if retry.ID == first.ID || retry.Method != entity.MethodCard {
		t.Fatalf("retry = %+v", retry)
	}

	if _, err := e.svc.Payment.RetryPayment(e.ctx, &request.InitiatePaymentRequest{
		PNR:    b.PNR,
		Amount: b.Fare.GrossFare,
		Method: string(entity.MethodCard),
	}); !errors.Is(err, ErrValidation) {
		t.Fatalf("retry with open intent error = %v, want ErrValidation", err)
	}

	intents, _ := e.svc.Payment.GetIntentsByPNR(e.ctx, b.PNR)
	if len(intents) != 2 || intents[0].ID != first.ID {
		t.Fatalf("intents = %+v", intents)
	}
}

func TestIntentExpiry(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "4A")
	intent := e.initiate(t, b, entity.MethodSTKPush, "")

	e.clock.Advance(89 * time.Second)
	if got, _ := e.svc.Payment.GetIntent(e.ctx, intent.ID); got.Status != entity.PaymentCreated {
		t.Fatalf("status before timeout = %s", got.Status)
	}

	e.clock.Advance(time.Second)
	expired, err := e.svc.Payment.GetIntent(e.ctx, intent.ID)
	if err != nil {
		t.Fatalf("GetIntent() error = %v", err)
	}
	if expired.Status != entity.PaymentExpired {
		t.Fatalf("status = %s, want EXPIRED", expired.Status)
	}
	if got := e.state(t, b.PNR); got != entity.BookingAwaitingPayment {
		t.Fatalf("state = %s, want AWAITING_PAYMENT", got)
	}
	if n := e.auditCount(t, entity.AuditFilter{PNR: b.PNR, Event: entity.EventPaymentExpired}); n != 1 {
		t.Fatalf("PAYMENT_EXPIRED entries = %d", n)
	}

	if _, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentSucceeded, "LATE"); !errors.Is(err, ErrIntentAlreadySettled) {
		t.Fatalf("late success error = %v, want ErrIntentAlreadySettled", err)
	}
	if _, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentExpired, ""); err != nil {
		t.Fatalf("repeated EXPIRED error = %v", err)
	}
}

func TestSettledIntentDoesNotExpire(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "4B")
	intent := e.initiate(t, b, entity.MethodSTKPush, "")

	if _, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentSucceeded, "MPESA-7"); err != nil {
		t.Fatalf("ApplySettlement() error = %v", err)
	}
	e.clock.Advance(2 * time.Minute)

	got, _ := e.svc.Payment.GetIntent(e.ctx, intent.ID)
	if got.Status != entity.PaymentSucceeded {
		t.Fatalf("status = %s, want SUCCEEDED", got.Status)
	}
	if n := e.auditCount(t, entity.AuditFilter{PNR: b.PNR, Event: entity.EventPaymentExpired}); n != 0 {
		t.Fatalf("settled intent expired")
	}
	if e.state(t, b.PNR) != entity.BookingTicketed {
		t.Fatalf("state = %s, want TICKETED", e.state(t, b.PNR))
	}
}

func TestSettlementSignature(t *testing.T) {
	e := newTestEngine(t, withGatewaySecret("s3cret-gateway-key"))
	id := uuid.New()

	sig := e.svc.Payment.Sign(id, entity.PaymentSucceeded, "MPESA-1")
	if len(sig) != 64 {
		t.Fatalf("signature = %q", sig)
	}
	if err := e.svc.Payment.VerifySignature(id, entity.PaymentSucceeded, "MPESA-1", sig); err != nil {
		t.Fatalf("VerifySignature() error = %v", err)
	}

	tests := []struct {
		name   string
		status entity.PaymentStatus
		ref    string
		sig    string
	}{
		{"status swapped", entity.PaymentFailed, "MPESA-1", sig},
		{"reference swapped", entity.PaymentSucceeded, "MPESA-2", sig},
		{"missing", entity.PaymentSucceeded, "MPESA-1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := e.svc.Payment.VerifySignature(id, tt.status, tt.ref, tt.sig); !errors.Is(err, ErrInvalidSignature) {
				t.Fatalf("VerifySignature() error = %v, want ErrInvalidSignature", err)
			}
		})
	}

	open := newTestEngine(t)
	if err := open.svc.Payment.VerifySignature(id, entity.PaymentSucceeded, "x", ""); err != nil {
		t.Fatalf("unsigned gateway error = %v", err)
	}
}

func TestPaymentMethods(t *testing.T) {
	e := newTestEngine(t)

	methods := e.svc.Payment.PaymentMethods()
	if len(methods) != 3 {
		t.Fatalf("methods = %d", len(methods))
	}
	want := map[entity.PaymentMethod]time.Duration{
		entity.MethodSTKPush:      90 * time.Second,
		entity.MethodCard:         10 * time.Minute,
		entity.MethodBankTransfer: 24 * time.Hour,
	}
	for _, m := range methods {
		if m.Timeout != want[m.Method] {
			t.Errorf("%s timeout = %v, want %v", m.Method, m.Timeout, want[m.Method])
		}
		if m.RequiresPhone != (m.Method == entity.MethodSTKPush) {
			t.Errorf("%s RequiresPhone = %v", m.Method, m.RequiresPhone)
		}
	}
}
