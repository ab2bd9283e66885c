package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"
	"transit-booking/internal/dto/request"
	"transit-booking/pkg/clock"
	"transit-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

var (
	testEpoch = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
	testCtx   = context.Background()
)

func testConfig() *utils.Config {
	return &utils.Config{
		App: utils.AppConfig{Name: "transit-booking-test"},
		Booking: utils.BookingConfig{
			LockTTL:          5 * time.Minute,
			AgentLockTTL:     10 * time.Minute,
			TicketIssueDelay: time.Second,
			PNRPrefix:        "LTR",
		},
		Fare: utils.FareConfig{
			RegulatoryBPS:    500,
			TransactionBPS:   200,
			CommissionBPS:    300,
			CommissionPolicy: "agent_only",
			PromoCodes:       map[string]int64{"STUDENT10": 1000, "SENIOR15": 1500},
		},
		Payment: utils.PaymentConfig{
			Currency:    "TZS",
			STKTimeout:  90 * time.Second,
			CardTimeout: 10 * time.Minute,
			BankTimeout: 24 * time.Hour,
		},
	}
}

func testTrips() []*entity.Trip {
	return []*entity.Trip{
		{
			ID:            "T1",
			RouteID:       "DAR-ARU",
			Origin:        "Dar es Salaam",
			Destination:   "Arusha",
			DepartureTime: testEpoch.Add(24 * time.Hour),
			ArrivalTime:   testEpoch.Add(34 * time.Hour),
			Class:         entity.ClassEconomy,
			BaseFare:      15000,
			Layout:        entity.SeatLayout{Rows: 5, SeatsPerRow: 4},
		},
		{
			ID:            "T2",
			RouteID:       "DAR-DOD",
			Origin:        "Dar es Salaam",
			Destination:   "Dodoma",
			DepartureTime: testEpoch.Add(26 * time.Hour),
			ArrivalTime:   testEpoch.Add(32 * time.Hour),
			Class:         entity.ClassBusiness,
			BaseFare:      45000,
			Layout:        entity.SeatLayout{Rows: 2, SeatsPerRow: 4, Blocked: []string{"1A"}, Occupied: []string{"2D"}},
		},
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	issued []string
}

func (n *recordingNotifier) TicketsIssued(ctx context.Context, booking *entity.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.issued = append(n.issued, booking.PNR)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.issued)
}

type recordingRefunder struct {
	mu      sync.Mutex
	refunds []string
}

func (r *recordingRefunder) InitiateRefund(ctx context.Context, booking *entity.Booking, reason string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refunds = append(r.refunds, booking.PNR)
	return "RF-" + booking.PNR, nil
}

func (r *recordingRefunder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.refunds)
}

type testEngine struct {
	ctx      context.Context
	clock    *clock.FakeClock
	repo     *repository.Repository
	svc      *Service
	notifier *recordingNotifier
	refunder *recordingRefunder
}

type engineOption func(*utils.Config)

func withGatewaySecret(secret string) engineOption {
	return func(c *utils.Config) { c.Payment.GatewaySecret = secret }
}

func newTestEngine(t *testing.T, opts ...engineOption) *testEngine {
	t.Helper()
	return newTestEngineWithLogger(t, zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel)), opts...)
}

func newTestEngineWithLogger(t *testing.T, log *zap.Logger, opts ...engineOption) *testEngine {
	t.Helper()

	config := testConfig()
	for _, opt := range opts {
		opt(config)
	}

	clk := clock.Fake(testEpoch)
	repo := repository.NewRepository(testTrips(), nil, log)
	notifier := &recordingNotifier{}
	refunder := &recordingRefunder{}
	svc := NewService(repo, clk, config, refunder, notifier, log)

	ctx := context.Background()
	if err := svc.Seat.InitializeFromCatalog(ctx); err != nil {
		t.Fatalf("InitializeFromCatalog() error = %v", err)
	}
	t.Cleanup(svc.Shutdown)

	return &testEngine{
		ctx:      ctx,
		clock:    clk,
		repo:     repo,
		svc:      svc,
		notifier: notifier,
		refunder: refunder,
	}
}

func (e *testEngine) hold(t *testing.T, tripID, userID string, seats ...string) *HoldResult {
	t.Helper()
	res, err := e.svc.Seat.HoldSeats(e.ctx, tripID, seats, userID, entity.ChannelWeb)
	if err != nil {
		t.Fatalf("HoldSeats(%s, %v) error = %v", userID, seats, err)
	}
	if !res.Success {
		t.Fatalf("HoldSeats(%s, %v) conflicts = %v", userID, seats, res.ConflictSeats)
	}
	return res
}

func bookingRequest(tripID, userID string, lockID uuid.UUID, seats ...string) *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		TripID:      tripID,
		UserID:      userID,
		LockID:      lockID.String(),
		SeatNumbers: seats,
		Channel:     string(entity.ChannelWeb),
		Passenger: request.PassengerRequest{
			Name:  "Amina Juma",
			Phone: "+255712345678",
			Email: "amina@example.com",
		},
	}
}

// book holds seats on T1 for userID and creates a WEB booking on them.
func (e *testEngine) book(t *testing.T, userID string, seats ...string) *entity.Booking {
	t.Helper()
	res := e.hold(t, "T1", userID, seats...)
	booking, err := e.svc.Booking.CreateBooking(e.ctx, bookingRequest("T1", userID, res.LockID, seats...))
	if err != nil {
		t.Fatalf("CreateBooking() error = %v", err)
	}
	return booking
}

func (e *testEngine) initiate(t *testing.T, b *entity.Booking, method entity.PaymentMethod, key string) *entity.PaymentIntent {
	t.Helper()
	intent, err := e.svc.Payment.InitiatePayment(e.ctx, &request.InitiatePaymentRequest{
		PNR:            b.PNR,
		Amount:         b.Fare.GrossFare,
		Method:         string(method),
		Phone:          "+255712345678",
		IdempotencyKey: key,
	})
	if err != nil {
		t.Fatalf("InitiatePayment(%s) error = %v", method, err)
	}
	return intent
}

func (e *testEngine) state(t *testing.T, pnr string) entity.BookingState {
	t.Helper()
	b, err := e.svc.Booking.GetBookingByPNR(e.ctx, pnr)
	if err != nil {
		t.Fatalf("GetBookingByPNR(%s) error = %v", pnr, err)
	}
	return b.State
}

func (e *testEngine) auditCount(t *testing.T, filter entity.AuditFilter) int {
	t.Helper()
	entries, err := e.svc.Audit.Query(e.ctx, filter)
	if err != nil {
		t.Fatalf("Audit.Query() error = %v", err)
	}
	return len(entries)
}

func (e *testEngine) seatStatus(t *testing.T, tripID, seatID string) entity.SeatStatus {
	t.Helper()
	status, err := e.svc.Seat.GetSeatStatus(e.ctx, tripID)
	if err != nil {
		t.Fatalf("GetSeatStatus(%s) error = %v", tripID, err)
	}
	return status[seatID]
}
