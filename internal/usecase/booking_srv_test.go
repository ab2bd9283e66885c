package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func TestCanTransition(t *testing.T) {
	legal := map[entity.BookingState][]entity.BookingState{
		entity.BookingInitiated:         {entity.BookingAwaitingPayment, entity.BookingCancelled, entity.BookingExpired},
		entity.BookingAwaitingPayment:   {entity.BookingPaid, entity.BookingExpired, entity.BookingInitiated, entity.BookingCancelled},
		entity.BookingPaid:              {entity.BookingTicketed, entity.BookingPaidNoSeat, entity.BookingCancelled},
		entity.BookingTicketed:          {entity.BookingCancelled, entity.BookingRefunded, entity.BookingPartiallyRefunded, entity.BookingNoShow},
		entity.BookingExpired:           {entity.BookingInitiated},
		entity.BookingPartiallyRefunded: {entity.BookingRefunded},
		entity.BookingPaidNoSeat:        {entity.BookingTicketed, entity.BookingRefunded},
	}

	for _, from := range entity.BookingStates {
		allowed := make(map[entity.BookingState]bool)
		for _, to := range legal[from] {
			allowed[to] = true
		}
		for _, to := range entity.BookingStates {
			if got := CanTransition(from, to); got != allowed[to] {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, allowed[to])
			}
		}
	}
}

func TestCreateBooking(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "1A", "1B", "1C")

	if b.State != entity.BookingInitiated {
		t.Fatalf("State = %s, want INITIATED", b.State)
	}
	if !strings.HasPrefix(b.PNR, "LTR") || len(b.PNR) != 13 {
		t.Fatalf("PNR = %q", b.PNR)
	}
	if b.Fare.GrossFare != 48150 || b.Fare.RegulatoryFee != 2250 || b.Fare.TransactionFee != 900 {
		t.Fatalf("Fare = %+v", b.Fare)
	}
	if b.Passenger.Phone != "+255712345678" {
		t.Fatalf("Passenger = %+v", b.Passenger)
	}

	created := e.auditCount(t, entity.AuditFilter{PNR: b.PNR, Event: entity.EventBookingCreated})
	if created != 1 {
		t.Fatalf("BOOKING_CREATED entries = %d, want 1", created)
	}
	entries, _ := e.svc.Audit.Query(e.ctx, entity.AuditFilter{PNR: b.PNR})
	if entries[0].ActorID != "alice" || entries[0].ActorType != entity.ActorUser {
		t.Fatalf("actor = %s/%s", entries[0].ActorID, entries[0].ActorType)
	}

	// Booking does not consume the hold.
	if got := e.seatStatus(t, "T1", "1B"); got != entity.SeatHeld {
		t.Fatalf("seat = %s, want HELD", got)
	}
}

func TestCreateBookingPromoCode(t *testing.T) {
	e := newTestEngine(t)
	res := e.hold(t, "T1", "alice", "1A", "1B", "1C")

	req := bookingRequest("T1", "alice", res.LockID, "1A", "1B", "1C")
	req.PromoCode = "student10"
	b, err := e.svc.Booking.CreateBooking(e.ctx, req)
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if b.Fare.Discount != 4500 || b.Fare.GrossFare != 43650 {
		t.Fatalf("Fare = %+v", b.Fare)
	}

	res = e.hold(t, "T1", "bob", "2A")
	req = bookingRequest("T1", "bob", res.LockID, "2A")
	req.PromoCode = "NOPE"
	b, err = e.svc.Booking.CreateBooking(e.ctx, req)
	if err != nil {
		t.Fatalf("CreateBooking(unknown promo) error = %v", err)
	}
	if b.Fare.Discount != 0 || b.Fare.PromoCode != "" {
		t.Fatalf("unknown promo changed fare: %+v", b.Fare)
	}
}

func TestCreateBookingRejectsInvalidRequests(t *testing.T) {
	e := newTestEngine(t)
	res := e.hold(t, "T1", "alice", "1A")

	tests := []struct {
		name   string
		mutate func(r *requestOverride)
		want   error
	}{
		{"unknown lock", func(r *requestOverride) { r.lockID = uuid.New() }, ErrValidation},
		{"seats not covered", func(r *requestOverride) { r.seats = []string{"1A", "1B"} }, ErrValidation},
		{"wrong trip", func(r *requestOverride) { r.trip = "T2" }, ErrValidation},
		{"unknown trip", func(r *requestOverride) { r.trip = "NOPE" }, ErrNotFound},
		{"bad phone", func(r *requestOverride) { r.phone = "12" }, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &requestOverride{trip: "T1", lockID: res.LockID, seats: []string{"1A"}, phone: "+255712345678"}
			tt.mutate(o)
			req := bookingRequest(o.trip, "alice", o.lockID, o.seats...)
			req.Passenger.Phone = o.phone
			if _, err := e.svc.Booking.CreateBooking(e.ctx, req); !errors.Is(err, tt.want) {
				t.Fatalf("CreateBooking() error = %v, want %v", err, tt.want)
			}
		})
	}

	e.clock.Advance(5 * time.Minute)
	if _, err := e.svc.Booking.CreateBooking(e.ctx, bookingRequest("T1", "alice", res.LockID, "1A")); !errors.Is(err, ErrValidation) {
		t.Fatalf("CreateBooking(expired hold) error = %v", err)
	}
}

type requestOverride struct {
	trip   string
	lockID uuid.UUID
	seats  []string
	phone  string
}

func TestUniquePNRs(t *testing.T) {
	e := newTestEngineWithLogger(t, zap.NewNop())

	const n = 10000
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		e.clock.Advance(time.Millisecond)
		res := e.hold(t, "T1", "bulk", "1A")
		b, err := e.svc.Booking.CreateBooking(e.ctx, bookingRequest("T1", "bulk", res.LockID, "1A"))
		if err != nil {
			t.Fatalf("CreateBooking #%d error = %v", i, err)
		}
		if _, dup := seen[b.PNR]; dup {
			t.Fatalf("duplicate PNR %s at #%d", b.PNR, i)
		}
		seen[b.PNR] = struct{}{}
	}

	_, total, err := e.svc.Booking.ListBookings(e.ctx, repository.BookingFilter{Limit: 1})
	if err != nil || total != n {
		t.Fatalf("ListBookings() total = %d, err = %v", total, err)
	}
}

func TestIllegalTransitionRejected(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "2C")

	if _, err := e.svc.Booking.CancelBooking(e.ctx, b.PNR, "changed plans"); err != nil {
		t.Fatalf("CancelBooking() error = %v", err)
	}
	before := e.auditCount(t, entity.AuditFilter{})

	_, err := e.svc.Booking.TransitionTo(e.ctx, b.PNR, entity.BookingPaid, "late payment")
	if !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("CANCELLED -> PAID error = %v, want ErrIllegalTransition", err)
	}
	if got := e.state(t, b.PNR); got != entity.BookingCancelled {
		t.Fatalf("state = %s, want CANCELLED", got)
	}
	if after := e.auditCount(t, entity.AuditFilter{}); after != before {
		t.Fatalf("rejected transition wrote audit entries: %d -> %d", before, after)
	}

	if _, err := e.svc.Booking.TransitionTo(e.ctx, b.PNR, entity.BookingState("LOST"), ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown state error = %v", err)
	}
	if _, err := e.svc.Booking.TransitionTo(e.ctx, "LTR0000000000", entity.BookingPaid, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown pnr error = %v", err)
	}
}

func TestCancelInitiatedReleasesHold(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "3C", "3D")

	cancelled, err := e.svc.Booking.CancelBooking(e.ctx, b.PNR, "")
	if err != nil {
		t.Fatalf("CancelBooking() error = %v", err)
	}
	if cancelled.State != entity.BookingCancelled {
		t.Fatalf("State = %s", cancelled.State)
	}
	if got := e.seatStatus(t, "T1", "3C"); got != entity.SeatFree {
		t.Fatalf("seat = %s, want FREE", got)
	}
	if e.refunder.count() != 0 {
		t.Fatal("unpaid cancellation triggered a refund")
	}

	if _, err := e.svc.Booking.CancelBooking(e.ctx, b.PNR, ""); !errors.Is(err, ErrIllegalTransition) {
		t.Fatalf("second cancel error = %v", err)
	}
}

func TestPaidBookingIssuesTickets(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "4C", "4D")
	intent := e.initiate(t, b, entity.MethodSTKPush, "")

	if _, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentSucceeded, "MPESA-1"); err != nil {
		t.Fatalf("ApplySettlement() error = %v", err)
	}
	if got := e.state(t, b.PNR); got != entity.BookingPaid {
		t.Fatalf("state = %s, want PAID", got)
	}

	e.clock.Advance(time.Second)

	ticketed, err := e.svc.Booking.GetBookingByPNR(e.ctx, b.PNR)
	if err != nil {
		t.Fatalf("GetBookingByPNR() error = %v", err)
	}
	if ticketed.State != entity.BookingTicketed {
		t.Fatalf("state = %s, want TICKETED", ticketed.State)
	}
	if len(ticketed.Tickets) != 2 {
		t.Fatalf("tickets = %d, want 2", len(ticketed.Tickets))
	}
	for _, tk := range ticketed.Tickets {
		if tk.Status != entity.TicketIssued || tk.QRCode != "QR_"+b.PNR+"_"+tk.SeatNumber {
			t.Fatalf("ticket = %+v", tk)
		}
		if !strings.HasPrefix(tk.TicketNumber, "TKT-20260302-"+b.PNR+"-") {
			t.Fatalf("ticket number = %s", tk.TicketNumber)
		}
	}
	for _, seat := range []string{"4C", "4D"} {
		if got := e.seatStatus(t, "T1", seat); got != entity.SeatOccupied {
			t.Fatalf("seat %s = %s, want OCCUPIED", seat, got)
		}
	}
	if e.notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", e.notifier.count())
	}

	// Cancelling a ticketed booking refunds but keeps the seats taken.
	if _, err := e.svc.Booking.CancelBooking(e.ctx, b.PNR, "passenger request"); err != nil {
		t.Fatalf("CancelBooking() error = %v", err)
	}
	if got := e.seatStatus(t, "T1", "4C"); got != entity.SeatOccupied {
		t.Fatalf("seat after cancel = %s, want OCCUPIED", got)
	}
	if e.refunder.count() != 1 {
		t.Fatalf("refunds = %d, want 1", e.refunder.count())
	}
	if n := e.auditCount(t, entity.AuditFilter{PNR: b.PNR, Event: entity.EventRefundInitiated}); n != 1 {
		t.Fatalf("REFUND_INITIATED entries = %d", n)
	}
}

func TestCancelPaidBookingBeforeIssuance(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "5C")
	intent := e.initiate(t, b, entity.MethodCard, "")
	if _, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentSucceeded, "CARD-1"); err != nil {
		t.Fatalf("ApplySettlement() error = %v", err)
	}

	if _, err := e.svc.Booking.CancelBooking(e.ctx, b.PNR, "duplicate purchase"); err != nil {
		t.Fatalf("CancelBooking() error = %v", err)
	}
	if e.refunder.count() != 1 {
		t.Fatalf("refunds = %d, want 1", e.refunder.count())
	}
	if got := e.seatStatus(t, "T1", "5C"); got != entity.SeatFree {
		t.Fatalf("seat = %s, want FREE", got)
	}

	// The scheduled issuance finds the booking cancelled and does nothing.
	e.clock.Advance(time.Second)
	if got := e.state(t, b.PNR); got != entity.BookingCancelled {
		t.Fatalf("state = %s, want CANCELLED", got)
	}
	if e.notifier.count() != 0 {
		t.Fatal("cancelled booking was notified")
	}
}

func TestLostHoldEndsInPaidNoSeatAndReassigns(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "2D")
	intent := e.initiate(t, b, entity.MethodBankTransfer, "")

	e.clock.Advance(5 * time.Minute)
	if got := e.seatStatus(t, "T1", "2D"); got != entity.SeatFree {
		t.Fatalf("bank transfer kept the hold: seat = %s", got)
	}

	if _, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentSucceeded, "BANK-1"); err != nil {
		t.Fatalf("ApplySettlement() error = %v", err)
	}
	e.clock.Advance(time.Second)
	if got := e.state(t, b.PNR); got != entity.BookingPaidNoSeat {
		t.Fatalf("state = %s, want PAID_NO_SEAT", got)
	}

	other := e.hold(t, "T2", "alice", "1B")
	if _, err := e.svc.Booking.ReassignSeats(e.ctx, b.PNR, other.LockID); !errors.Is(err, ErrValidation) {
		t.Fatalf("reassign to other trip error = %v", err)
	}

	res := e.hold(t, "T1", "alice", "5D")
	reassigned, err := e.svc.Booking.ReassignSeats(e.ctx, b.PNR, res.LockID)
	if err != nil {
		t.Fatalf("ReassignSeats() error = %v", err)
	}
	if reassigned.State != entity.BookingTicketed || reassigned.SeatNumbers[0] != "5D" || len(reassigned.Tickets) != 1 {
		t.Fatalf("reassigned = %+v", reassigned)
	}
	if got := e.seatStatus(t, "T1", "5D"); got != entity.SeatOccupied {
		t.Fatalf("seat = %s, want OCCUPIED", got)
	}
}

func TestCreateBookingClaimsHold(t *testing.T) {
	e := newTestEngine(t)
	res := e.hold(t, "T1", "alice", "3A")

	if _, err := e.svc.Booking.CreateBooking(e.ctx, bookingRequest("T1", "bob", res.LockID, "3A")); !errors.Is(err, ErrValidation) {
		t.Fatalf("booking on another user's hold error = %v, want ErrValidation", err)
	}

	first, err := e.svc.Booking.CreateBooking(e.ctx, bookingRequest("T1", "alice", res.LockID, "3A"))
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	if _, err := e.svc.Booking.CreateBooking(e.ctx, bookingRequest("T1", "alice", res.LockID, "3A")); !errors.Is(err, ErrValidation) {
		t.Fatalf("second booking on one hold error = %v, want ErrValidation", err)
	}

	all, _ := e.svc.Booking.GetAllBookings(e.ctx)
	if len(all) != 1 || all[0].PNR != first.PNR {
		t.Fatalf("bookings = %d, want only %s", len(all), first.PNR)
	}
	lock, _ := e.svc.Seat.GetLock(e.ctx, res.LockID)
	if lock.PNR != first.PNR {
		t.Fatalf("lock bound to %q, want %s", lock.PNR, first.PNR)
	}
}

func TestTicketedTransitionOccupiesSeats(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "3A")
	intent := e.initiate(t, b, entity.MethodSTKPush, "")
	if _, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentSucceeded, "MPESA-7"); err != nil {
		t.Fatalf("ApplySettlement() error = %v", err)
	}

	ticketed, err := e.svc.Booking.TransitionTo(e.ctx, b.PNR, entity.BookingTicketed, "manual issue")
	if err != nil {
		t.Fatalf("TransitionTo(TICKETED) error = %v", err)
	}
	if ticketed.State != entity.BookingTicketed || len(ticketed.Tickets) != 1 {
		t.Fatalf("ticketed = %+v", ticketed)
	}
	if got := e.seatStatus(t, "T1", "3A"); got != entity.SeatOccupied {
		t.Fatalf("seat = %s, want OCCUPIED", got)
	}

	e.clock.Advance(11 * time.Minute)
	if got := e.seatStatus(t, "T1", "3A"); got != entity.SeatOccupied {
		t.Fatalf("seat after hold deadline = %s, want OCCUPIED", got)
	}
	res, err := e.svc.Seat.HoldSeats(e.ctx, "T1", []string{"3A"}, "bob", entity.ChannelWeb)
	if err != nil {
		t.Fatalf("HoldSeats() error = %v", err)
	}
	if res.Success {
		t.Fatal("ticketed seat was held by another user")
	}
	if e.notifier.count() != 1 {
		t.Fatalf("notifications = %d, want 1", e.notifier.count())
	}
}

func TestPaidNoSeatNeedsReassignment(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "2D")
	intent := e.initiate(t, b, entity.MethodBankTransfer, "")

	e.clock.Advance(5 * time.Minute)
	if _, err := e.svc.Payment.ApplySettlement(e.ctx, intent.ID, entity.PaymentSucceeded, "BANK-2"); err != nil {
		t.Fatalf("ApplySettlement() error = %v", err)
	}
	e.clock.Advance(time.Second)
	if got := e.state(t, b.PNR); got != entity.BookingPaidNoSeat {
		t.Fatalf("state = %s, want PAID_NO_SEAT", got)
	}

	if _, err := e.svc.Booking.TransitionTo(e.ctx, b.PNR, entity.BookingTicketed, "manual issue"); !errors.Is(err, ErrValidation) {
		t.Fatalf("TransitionTo(TICKETED) error = %v, want ErrValidation", err)
	}
	if got := e.state(t, b.PNR); got != entity.BookingPaidNoSeat {
		t.Fatalf("state = %s, want PAID_NO_SEAT", got)
	}
	if got := e.seatStatus(t, "T1", "2D"); got != entity.SeatFree {
		t.Fatalf("seat = %s, want FREE", got)
	}
}

func TestExpireReleasesHold(t *testing.T) {
	e := newTestEngine(t)
	b := e.book(t, "alice", "4A")
	e.initiate(t, b, entity.MethodCard, "")

	expired, err := e.svc.Booking.TransitionTo(e.ctx, b.PNR, entity.BookingExpired, "payment window closed")
	if err != nil {
		t.Fatalf("TransitionTo(EXPIRED) error = %v", err)
	}
	if expired.State != entity.BookingExpired {
		t.Fatalf("State = %s", expired.State)
	}
	if got := e.seatStatus(t, "T1", "4A"); got != entity.SeatFree {
		t.Fatalf("seat = %s, want FREE", got)
	}
	e.hold(t, "T1", "bob", "4A")
}

type failingAudit struct {
	AuditService
}

func (failingAudit) Record(ctx context.Context, rec AuditRecord) (*entity.AuditLogEntry, error) {
	return nil, ErrAudit
}

func TestAuditFailureAbortsBooking(t *testing.T) {
	e := newTestEngine(t)
	log := zap.NewNop()
	bookings := NewBookingService(e.repo, e.svc.Seat, e.svc.Fare, failingAudit{}, e.refunder, e.notifier, e.clock, testConfig().Booking, log)

	res := e.hold(t, "T1", "alice", "1A")
	if _, err := bookings.CreateBooking(e.ctx, bookingRequest("T1", "alice", res.LockID, "1A")); !errors.Is(err, ErrAudit) {
		t.Fatalf("CreateBooking() error = %v, want ErrAudit", err)
	}
	all, err := bookings.GetAllBookings(e.ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("bookings after failed audit = %d, %v", len(all), err)
	}
	// The failed attempt must not keep the hold bound.
	if _, err := e.svc.Booking.CreateBooking(e.ctx, bookingRequest("T1", "alice", res.LockID, "1A")); err != nil {
		t.Fatalf("CreateBooking() after failed audit error = %v", err)
	}

	b := e.book(t, "bob", "1B")
	if _, err := bookings.CancelBooking(e.ctx, b.PNR, ""); !errors.Is(err, ErrAudit) {
		t.Fatalf("CancelBooking() error = %v, want ErrAudit", err)
	}
	if got := e.state(t, b.PNR); got != entity.BookingInitiated {
		t.Fatalf("state after failed audit = %s, want INITIATED", got)
	}
}

func TestListBookingsByState(t *testing.T) {
	e := newTestEngine(t)
	first := e.book(t, "alice", "1A")
	e.book(t, "bob", "1B")
	if _, err := e.svc.Booking.CancelBooking(e.ctx, first.PNR, ""); err != nil {
		t.Fatalf("CancelBooking() error = %v", err)
	}

	cancelled, err := e.svc.Booking.GetBookingsByState(e.ctx, entity.BookingCancelled)
	if err != nil || len(cancelled) != 1 || cancelled[0].PNR != first.PNR {
		t.Fatalf("GetBookingsByState(CANCELLED) = %v, %v", cancelled, err)
	}
	all, _ := e.svc.Booking.GetAllBookings(e.ctx)
	if len(all) != 2 {
		t.Fatalf("GetAllBookings() = %d, want 2", len(all))
	}

	got, err := e.svc.Booking.GetBooking(e.ctx, first.ID)
	if err != nil || got.PNR != first.PNR {
		t.Fatalf("GetBooking() = %v, %v", got, err)
	}
	if _, err := e.svc.Booking.GetBooking(e.ctx, uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetBooking(unknown) error = %v", err)
	}
}
