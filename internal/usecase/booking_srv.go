package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"
	"transit-booking/internal/dto/request"
	"transit-booking/pkg/clock"
	"transit-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// transitions is the complete booking lifecycle. Anything not listed is
// rejected.
var transitions = map[entity.BookingState][]entity.BookingState{
	entity.BookingInitiated:         {entity.BookingAwaitingPayment, entity.BookingCancelled, entity.BookingExpired},
	entity.BookingAwaitingPayment:   {entity.BookingPaid, entity.BookingExpired, entity.BookingInitiated, entity.BookingCancelled},
	entity.BookingPaid:              {entity.BookingTicketed, entity.BookingPaidNoSeat, entity.BookingCancelled},
	entity.BookingTicketed:          {entity.BookingCancelled, entity.BookingRefunded, entity.BookingPartiallyRefunded, entity.BookingNoShow},
	entity.BookingExpired:           {entity.BookingInitiated},
	entity.BookingPartiallyRefunded: {entity.BookingRefunded},
	entity.BookingPaidNoSeat:        {entity.BookingTicketed, entity.BookingRefunded},
}

// CanTransition reports whether the lifecycle allows from -> to.
func CanTransition(from, to entity.BookingState) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func cancellable(state entity.BookingState) bool {
	switch state {
	case entity.BookingInitiated, entity.BookingAwaitingPayment, entity.BookingPaid, entity.BookingTicketed:
		return true
	}
	return false
}

func alreadyPaid(state entity.BookingState) bool {
	switch state {
	case entity.BookingPaid, entity.BookingTicketed, entity.BookingPaidNoSeat:
		return true
	}
	return false
}

const (
	pnrSeqStart    = 1000
	pnrSeqModulus  = 10000
	maxPNRAttempts = 10000
)

type BookingService interface {
	CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*entity.Booking, error)
	TransitionTo(ctx context.Context, pnr string, newState entity.BookingState, reason string) (*entity.Booking, error)
	CancelBooking(ctx context.Context, pnr, reason string) (*entity.Booking, error)
	IssueTickets(ctx context.Context, pnr string) (*entity.Booking, error)
	ReassignSeats(ctx context.Context, pnr string, lockID uuid.UUID) (*entity.Booking, error)
	ApplyPaymentSuccess(ctx context.Context, pnr, gatewayRef string) (*entity.Booking, error)
	// RefundUnappliedPayment refunds a captured intent whose booking was
	// cancelled or expired before the money arrived.
	RefundUnappliedPayment(ctx context.Context, intent *entity.PaymentIntent) error

	GetBooking(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	GetBookingByPNR(ctx context.Context, pnr string) (*entity.Booking, error)
	GetAllBookings(ctx context.Context) ([]*entity.Booking, error)
	GetBookingsByState(ctx context.Context, state entity.BookingState) ([]*entity.Booking, error)
	ListBookings(ctx context.Context, filter repository.BookingFilter) ([]*entity.Booking, int64, error)

	// Shutdown cancels scheduled ticket issuance.
	Shutdown()
}

type bookingService struct {
	repo     *repository.Repository
	seats    SeatService
	fares    FareService
	audit    AuditService
	refunder Refunder
	notifier Notifier
	clock    clock.Clock
	config   utils.BookingConfig
	log      *zap.Logger

	locksMu sync.RWMutex
	locks   map[string]*sync.Mutex // per booking, keyed by PNR

	seqMu  sync.Mutex
	pnrSeq int

	timersMu sync.Mutex
	timers   map[string]*clock.Timer // pending ticket issuance
}

func NewBookingService(
	repo *repository.Repository,
	seats SeatService,
	fares FareService,
	audit AuditService,
	refunder Refunder,
	notifier Notifier,
	clk clock.Clock,
	config utils.BookingConfig,
	log *zap.Logger,
) BookingService {
	if config.PNRPrefix == "" {
		config.PNRPrefix = "LTR"
	}
	return &bookingService{
		repo:     repo,
		seats:    seats,
		fares:    fares,
		audit:    audit,
		refunder: refunder,
		notifier: notifier,
		clock:    clk,
		config:   config,
		log:      log.With(zap.String("service", "booking")),
		locks:    make(map[string]*sync.Mutex),
		pnrSeq:   pnrSeqStart,
		timers:   make(map[string]*clock.Timer),
	}
}

func (s *bookingService) bookingLock(pnr string) *sync.Mutex {
	s.locksMu.RLock()
	mu, ok := s.locks[pnr]
	s.locksMu.RUnlock()
	if ok {
		return mu
	}

	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	if mu, ok = s.locks[pnr]; !ok {
		mu = &sync.Mutex{}
		s.locks[pnr] = mu
	}
	return mu
}

func (s *bookingService) nextSeq() int {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	seq := s.pnrSeq
	s.pnrSeq = (s.pnrSeq + 1) % pnrSeqModulus
	return seq
}

// generatePNR checks each candidate against the live registry and
// regenerates on collision.
func (s *bookingService) generatePNR(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxPNRAttempts; attempt++ {
		pnr := utils.FormatPNR(s.config.PNRPrefix, s.clock.Now(), s.nextSeq())
		exists, err := s.repo.Booking.ExistsPNR(ctx, pnr)
		if err != nil {
			return "", fmt.Errorf("check pnr %s: %w", pnr, err)
		}
		if !exists {
			return pnr, nil
		}
	}

	s.log.Error("PNR space exhausted", zap.Int("attempts", maxPNRAttempts))
	return "", ErrPNRExhausted
}

func actorFor(ctx context.Context, userID string, channel entity.Channel) entity.Actor {
	actor := utils.GetActorFromContext(ctx)
	if actor.Type != entity.ActorSystem {
		return actor
	}
	if userID == "" {
		return actor
	}
	if channel == entity.ChannelAgent {
		return entity.Actor{ID: userID, Type: entity.ActorAgent}
	}
	return entity.Actor{ID: userID, Type: entity.ActorUser}
}

// ==================== CREATE ====================

func (s *bookingService) CreateBooking(ctx context.Context, req *request.CreateBookingRequest) (*entity.Booking, error) {
	if err := validateRequest(req); err != nil {
		s.log.Warn("Create booking validation failed", zap.Error(err))
		return nil, err
	}

	lockID, err := uuid.Parse(req.LockID)
	if err != nil {
		return nil, validationErr("invalid lock id %s", req.LockID)
	}
	channel := entity.Channel(req.Channel)
	seatNumbers := utils.UniqueStrings(req.SeatNumbers)

	trip, err := s.repo.Trip.FindByID(ctx, req.TripID)
	if err != nil {
		return nil, fmt.Errorf("find trip %s: %w", req.TripID, err)
	}
	if trip == nil {
		return nil, fmt.Errorf("trip %s: %w", req.TripID, ErrNotFound)
	}

	pnr, err := s.generatePNR(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.seats.ClaimLock(ctx, lockID, trip.ID, seatNumbers, req.UserID, pnr); err != nil {
		s.log.Warn("Booking rejected: hold not claimable",
			zap.Error(err),
			zap.String("lock_id", lockID.String()),
			zap.String("trip_id", trip.ID),
			zap.Strings("seats", seatNumbers),
		)
		return nil, err
	}
	registered := false
	defer func() {
		if !registered {
			s.seats.ReleaseClaim(ctx, lockID, pnr)
		}
	}()

	fare, err := s.fares.CalculateFare(trip, len(seatNumbers), channel)
	if err != nil {
		return nil, err
	}
	if req.PromoCode != "" {
		if discounted, ok := s.fares.ApplyPromoCode(fare, req.PromoCode); ok {
			fare = discounted
		} else {
			s.log.Info("Promo code not applied", zap.String("code", strings.ToUpper(req.PromoCode)))
		}
	}
	if err := s.fares.ValidateCompliance(fare); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	booking := &entity.Booking{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		PNR:    pnr,
		TripID: trip.ID,
		UserID: req.UserID,
		LockID: lockID,
		Passenger: entity.Passenger{
			Name:     strings.TrimSpace(req.Passenger.Name),
			Phone:    utils.NormalizePhone(req.Passenger.Phone),
			Email:    strings.TrimSpace(req.Passenger.Email),
			IDNumber: req.Passenger.IDNumber,
		},
		SeatNumbers: seatNumbers,
		Fare:        fare,
		State:       entity.BookingInitiated,
		Channel:     channel,
	}

	mu := s.bookingLock(pnr)
	mu.Lock()
	defer mu.Unlock()

	_, err = s.audit.Record(ctx, AuditRecord{
		Event:     entity.EventBookingCreated,
		BookingID: booking.ID.String(),
		PNR:       pnr,
		Actor:     actorFor(ctx, req.UserID, channel),
		Details: map[string]any{
			"trip_id":   trip.ID,
			"seats":     seatNumbers,
			"channel":   string(channel),
			"fare":      fare,
			"passenger": booking.Passenger.Name,
			"lock_id":   lockID.String(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create booking %s: %w", pnr, err)
	}

	if err := s.repo.Booking.Create(ctx, booking); err != nil {
		s.log.Error("Failed to register booking", zap.Error(err), zap.String("pnr", pnr))
		return nil, fmt.Errorf("register booking %s: %w", pnr, err)
	}
	registered = true

	s.log.Info("Booking created",
		zap.String("pnr", pnr),
		zap.String("trip_id", trip.ID),
		zap.Strings("seats", seatNumbers),
		zap.Int64("gross_fare", fare.GrossFare),
		zap.String("channel", string(channel)),
	)
	return booking.Clone(), nil
}

// ==================== TRANSITIONS ====================

// transitionLocked applies from -> to on a booking whose mutex the caller
// holds. The audit entry is written before the registry is updated; an
// audit failure leaves the booking untouched.
func (s *bookingService) transitionLocked(ctx context.Context, current *entity.Booking, to entity.BookingState, reason string, extra map[string]any, mutate func(*entity.Booking)) (*entity.Booking, error) {
	from := current.State
	if !CanTransition(from, to) {
		s.log.Warn("Illegal transition rejected",
			zap.String("pnr", current.PNR),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
		return nil, fmt.Errorf("%s -> %s for %s: %w", from, to, current.PNR, ErrIllegalTransition)
	}

	next := current.Clone()
	next.State = to
	next.UpdatedAt = s.clock.Now()
	if mutate != nil {
		mutate(next)
	}
	if to == entity.BookingTicketed && len(next.Tickets) == 0 {
		next.Tickets = s.synthesizeTickets(next)
	}

	details := map[string]any{
		"from":   string(from),
		"to":     string(to),
		"reason": reason,
	}
	for k, v := range extra {
		details[k] = v
	}

	_, err := s.audit.Record(ctx, AuditRecord{
		Event:     entity.EventBookingStateChanged,
		BookingID: next.ID.String(),
		PNR:       next.PNR,
		Actor:     utils.GetActorFromContext(ctx),
		Details:   details,
	})
	if err != nil {
		return nil, fmt.Errorf("transition %s -> %s for %s: %w", from, to, current.PNR, err)
	}

	if err := s.repo.Booking.Update(ctx, next); err != nil {
		s.log.Error("Failed to commit transition after audit",
			zap.Error(err),
			zap.String("pnr", next.PNR),
			zap.String("to", string(to)),
		)
		return nil, fmt.Errorf("commit transition for %s: %w", next.PNR, err)
	}

	s.log.Info("Booking transitioned",
		zap.String("pnr", next.PNR),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("reason", reason),
	)
	return next, nil
}

func (s *bookingService) findBooking(ctx context.Context, pnr string) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByPNR(ctx, pnr)
	if err != nil {
		return nil, fmt.Errorf("find booking %s: %w", pnr, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", pnr, ErrNotFound)
	}
	return booking, nil
}

func (s *bookingService) TransitionTo(ctx context.Context, pnr string, newState entity.BookingState, reason string) (*entity.Booking, error) {
	if !newState.Valid() {
		return nil, validationErr("unknown booking state %q", newState)
	}

	mu := s.bookingLock(pnr)
	mu.Lock()
	current, err := s.findBooking(ctx, pnr)
	if err != nil {
		mu.Unlock()
		return nil, err
	}

	// Tickets only exist once the seats are occupied.
	if newState == entity.BookingTicketed {
		mu.Unlock()
		switch current.State {
		case entity.BookingPaid:
			return s.IssueTickets(ctx, pnr)
		case entity.BookingPaidNoSeat:
			return nil, validationErr("booking %s has no seats; reassign a live hold to issue tickets", pnr)
		}
		return nil, fmt.Errorf("%s -> %s for %s: %w", current.State, newState, pnr, ErrIllegalTransition)
	}

	next, err := s.transitionLocked(ctx, current, newState, reason, nil, nil)
	mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, current.State, next, reason)
	return next, nil
}

// afterTransition runs side effects keyed on the new state. No booking
// mutex is held here.
func (s *bookingService) afterTransition(ctx context.Context, from entity.BookingState, b *entity.Booking, reason string) {
	switch b.State {
	case entity.BookingPaid:
		s.scheduleIssuance(b.PNR)

	case entity.BookingCancelled:
		if from == entity.BookingPaid || from == entity.BookingTicketed {
			s.initiateRefund(ctx, b, reason, nil)
		}
		// Seats of a ticketed booking stay occupied.
		if from != entity.BookingTicketed && s.seats.ReleaseLock(ctx, b.LockID) {
			s.log.Info("Hold released on cancellation", zap.String("pnr", b.PNR))
		}

	case entity.BookingExpired:
		if s.seats.ReleaseLock(ctx, b.LockID) {
			s.log.Info("Hold released on expiry", zap.String("pnr", b.PNR))
		}

	case entity.BookingTicketed:
		if err := s.notifier.TicketsIssued(ctx, b); err != nil {
			s.log.Error("Ticket notification failed", zap.Error(err), zap.String("pnr", b.PNR))
		}
	}
}

func (s *bookingService) initiateRefund(ctx context.Context, b *entity.Booking, reason string, extra map[string]any) {
	ref, err := s.refunder.InitiateRefund(ctx, b, reason)
	if err != nil {
		s.log.Error("Refund initiation failed", zap.Error(err), zap.String("pnr", b.PNR))
	}

	details := map[string]any{
		"amount":     b.Fare.GrossFare,
		"reason":     reason,
		"refund_ref": ref,
	}
	for k, v := range extra {
		details[k] = v
	}
	if err != nil {
		details["error"] = err.Error()
	}

	_, auditErr := s.audit.Record(ctx, AuditRecord{
		Event:     entity.EventRefundInitiated,
		BookingID: b.ID.String(),
		PNR:       b.PNR,
		Actor:     utils.GetActorFromContext(ctx),
		Details:   details,
	})
	if auditErr != nil {
		s.log.Error("Refund audit entry not recorded", zap.Error(auditErr), zap.String("pnr", b.PNR))
	}
}

func (s *bookingService) scheduleIssuance(pnr string) {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	if t, ok := s.timers[pnr]; ok {
		t.Stop()
	}
	s.timers[pnr] = s.clock.AfterFunc(s.config.TicketIssueDelay, func() {
		s.timersMu.Lock()
		delete(s.timers, pnr)
		s.timersMu.Unlock()

		ctx := utils.SetActorContext(context.Background(), entity.SystemActor)
		if _, err := s.IssueTickets(ctx, pnr); err != nil {
			if errors.Is(err, ErrIllegalTransition) {
				s.log.Debug("Scheduled issuance skipped", zap.String("pnr", pnr), zap.Error(err))
				return
			}
			s.log.Error("Scheduled ticket issuance failed", zap.Error(err), zap.String("pnr", pnr))
		}
	})
}

func (s *bookingService) Shutdown() {
	s.timersMu.Lock()
	defer s.timersMu.Unlock()

	for pnr, t := range s.timers {
		t.Stop()
		delete(s.timers, pnr)
	}
}

// ==================== OPERATIONS ====================

func (s *bookingService) CancelBooking(ctx context.Context, pnr, reason string) (*entity.Booking, error) {
	if reason == "" {
		reason = "cancelled by request"
	}

	mu := s.bookingLock(pnr)
	mu.Lock()
	current, err := s.findBooking(ctx, pnr)
	if err != nil {
		mu.Unlock()
		return nil, err
	}
	if !cancellable(current.State) {
		mu.Unlock()
		s.log.Warn("Cancellation rejected", zap.String("pnr", pnr), zap.String("state", string(current.State)))
		return nil, fmt.Errorf("cancel %s in state %s: %w", pnr, current.State, ErrIllegalTransition)
	}
	next, err := s.transitionLocked(ctx, current, entity.BookingCancelled, reason, nil, nil)
	mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, current.State, next, reason)
	return next, nil
}

// IssueTickets converts the booking's hold into occupied seats. If the hold
// is gone the booking moves to PAID_NO_SEAT for manual reassignment.
func (s *bookingService) IssueTickets(ctx context.Context, pnr string) (*entity.Booking, error) {
	mu := s.bookingLock(pnr)
	mu.Lock()
	current, err := s.findBooking(ctx, pnr)
	if err != nil {
		mu.Unlock()
		return nil, err
	}
	if current.State != entity.BookingPaid {
		mu.Unlock()
		return nil, fmt.Errorf("issue tickets for %s in state %s: %w", pnr, current.State, ErrIllegalTransition)
	}

	var next *entity.Booking
	if s.seats.ConvertToOccupied(ctx, current.LockID, pnr) {
		tickets := s.synthesizeTickets(current)
		next, err = s.transitionLocked(ctx, current, entity.BookingTicketed, "tickets issued",
			map[string]any{"tickets": ticketNumbers(tickets)},
			func(b *entity.Booking) { b.Tickets = tickets })
	} else {
		s.log.Warn("Hold lost before issuance", zap.String("pnr", pnr), zap.String("lock_id", current.LockID.String()))
		next, err = s.transitionLocked(ctx, current, entity.BookingPaidNoSeat, "seat hold lost before issuance",
			map[string]any{"lock_id": current.LockID.String()}, nil)
	}
	mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, current.State, next, "")
	return next, nil
}

func (s *bookingService) ReassignSeats(ctx context.Context, pnr string, lockID uuid.UUID) (*entity.Booking, error) {
	mu := s.bookingLock(pnr)
	mu.Lock()
	current, err := s.findBooking(ctx, pnr)
	if err != nil {
		mu.Unlock()
		return nil, err
	}
	if current.State != entity.BookingPaidNoSeat {
		mu.Unlock()
		return nil, fmt.Errorf("reassign %s in state %s: %w", pnr, current.State, ErrIllegalTransition)
	}

	lock, err := s.seats.GetLock(ctx, lockID)
	if err != nil {
		mu.Unlock()
		return nil, err
	}
	if lock.TripID != current.TripID || len(lock.SeatIDs) != len(current.SeatNumbers) {
		mu.Unlock()
		return nil, validationErr("hold %s must cover %d seats on trip %s", lockID, len(current.SeatNumbers), current.TripID)
	}
	if !s.seats.ConvertToOccupied(ctx, lockID, pnr) {
		mu.Unlock()
		return nil, validationErr("hold %s is no longer live", lockID)
	}

	seats := append([]string(nil), lock.SeatIDs...)
	reassigned := current.Clone()
	reassigned.SeatNumbers = seats
	tickets := s.synthesizeTickets(reassigned)

	next, err := s.transitionLocked(ctx, current, entity.BookingTicketed, "seats reassigned",
		map[string]any{
			"previous_seats": current.SeatNumbers,
			"seats":          seats,
			"lock_id":        lockID.String(),
			"tickets":        ticketNumbers(tickets),
		},
		func(b *entity.Booking) {
			b.SeatNumbers = seats
			b.LockID = lockID
			b.Tickets = tickets
		})
	mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, current.State, next, "")
	return next, nil
}

// ApplyPaymentSuccess is safe to repeat: a booking that is already paid is
// returned unchanged.
func (s *bookingService) ApplyPaymentSuccess(ctx context.Context, pnr, gatewayRef string) (*entity.Booking, error) {
	mu := s.bookingLock(pnr)
	mu.Lock()
	current, err := s.findBooking(ctx, pnr)
	if err != nil {
		mu.Unlock()
		return nil, err
	}
	if alreadyPaid(current.State) {
		mu.Unlock()
		s.log.Info("Duplicate payment success ignored",
			zap.String("pnr", pnr),
			zap.String("state", string(current.State)),
			zap.String("gateway_ref", gatewayRef),
		)
		return current, nil
	}

	next, err := s.transitionLocked(ctx, current, entity.BookingPaid, "payment succeeded",
		map[string]any{"gateway_ref": gatewayRef}, nil)
	mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, current.State, next, "payment succeeded")
	return next, nil
}

func (s *bookingService) RefundUnappliedPayment(ctx context.Context, intent *entity.PaymentIntent) error {
	mu := s.bookingLock(intent.PNR)
	mu.Lock()
	current, err := s.findBooking(ctx, intent.PNR)
	mu.Unlock()
	if err != nil {
		return err
	}

	switch current.State {
	case entity.BookingCancelled, entity.BookingExpired:
	default:
		return fmt.Errorf("refund unapplied payment for %s in state %s: %w", intent.PNR, current.State, ErrIllegalTransition)
	}

	reason := fmt.Sprintf("payment received after booking %s", strings.ToLower(string(current.State)))
	s.initiateRefund(ctx, current, reason, map[string]any{
		"amount":      intent.Amount,
		"intent_id":   intent.ID.String(),
		"gateway_ref": intent.GatewayReference,
	})
	return nil
}

func (s *bookingService) synthesizeTickets(b *entity.Booking) []entity.Ticket {
	now := s.clock.Now()
	tickets := make([]entity.Ticket, 0, len(b.SeatNumbers))
	for i, seat := range b.SeatNumbers {
		tickets = append(tickets, entity.Ticket{
			ID:            uuid.New(),
			PNR:           b.PNR,
			TicketNumber:  utils.GenerateTicketNumber(b.PNR, now, i+1),
			SeatNumber:    seat,
			PassengerName: b.Passenger.Name,
			TripID:        b.TripID,
			IssuedAt:      now,
			Status:        entity.TicketIssued,
			QRCode:        fmt.Sprintf("QR_%s_%s", b.PNR, seat),
		})
	}
	return tickets
}

func ticketNumbers(tickets []entity.Ticket) []string {
	numbers := make([]string, 0, len(tickets))
	for _, t := range tickets {
		numbers = append(numbers, t.TicketNumber)
	}
	return numbers
}

// ==================== QUERIES ====================

func (s *bookingService) GetBooking(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	booking, err := s.repo.Booking.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find booking %s: %w", id, err)
	}
	if booking == nil {
		return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
	}
	return booking, nil
}

func (s *bookingService) GetBookingByPNR(ctx context.Context, pnr string) (*entity.Booking, error) {
	return s.findBooking(ctx, pnr)
}

func (s *bookingService) GetAllBookings(ctx context.Context) ([]*entity.Booking, error) {
	bookings, _, err := s.ListBookings(ctx, repository.BookingFilter{})
	return bookings, err
}

func (s *bookingService) GetBookingsByState(ctx context.Context, state entity.BookingState) ([]*entity.Booking, error) {
	if !state.Valid() {
		return nil, validationErr("unknown booking state %q", state)
	}
	bookings, _, err := s.ListBookings(ctx, repository.BookingFilter{State: state})
	return bookings, err
}

func (s *bookingService) ListBookings(ctx context.Context, filter repository.BookingFilter) ([]*entity.Booking, int64, error) {
	bookings, total, err := s.repo.Booking.FindAll(ctx, filter)
	if err != nil {
		s.log.Error("Failed to list bookings", zap.Error(err))
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, total, nil
}
