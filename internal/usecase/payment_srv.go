package usecase

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"
	"transit-booking/internal/dto/request"
	"transit-booking/pkg/clock"
	"transit-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

type PaymentMethodInfo struct {
	Method        entity.PaymentMethod `json:"method"`
	Timeout       time.Duration        `json:"-"`
	TimeoutSecs   int64                `json:"timeout_seconds"`
	RequiresPhone bool                 `json:"requires_phone"`
	HoldsSeats    bool                 `json:"holds_seats"`
}

type PaymentService interface {
	InitiatePayment(ctx context.Context, req *request.InitiatePaymentRequest) (*entity.PaymentIntent, error)
	RetryPayment(ctx context.Context, req *request.InitiatePaymentRequest) (*entity.PaymentIntent, error)
	// ApplySettlement is the single entry point for gateway outcomes.
	// Re-applying the status an intent already settled with is a no-op.
	ApplySettlement(ctx context.Context, intentID uuid.UUID, status entity.PaymentStatus, gatewayRef string) (*entity.PaymentIntent, error)

	Sign(intentID uuid.UUID, status entity.PaymentStatus, gatewayRef string) string
	VerifySignature(intentID uuid.UUID, status entity.PaymentStatus, gatewayRef, signature string) error

	GetIntent(ctx context.Context, id uuid.UUID) (*entity.PaymentIntent, error)
	GetIntentsByPNR(ctx context.Context, pnr string) ([]*entity.PaymentIntent, error)
	PaymentMethods() []PaymentMethodInfo

	// Shutdown stops every pending intent timer.
	Shutdown()
}

type paymentService struct {
	mu       sync.Mutex
	repo     repository.PaymentRepository
	bookings BookingService
	seats    SeatService
	audit    AuditService
	clock    clock.Clock
	config   utils.PaymentConfig
	timers   map[uuid.UUID]*clock.Timer
	log      *zap.Logger
}

func NewPaymentService(
	repo repository.PaymentRepository,
	bookings BookingService,
	seats SeatService,
	audit AuditService,
	clk clock.Clock,
	config utils.PaymentConfig,
	log *zap.Logger,
) PaymentService {
	if config.Currency == "" {
		config.Currency = "TZS"
	}
	return &paymentService{
		repo:     repo,
		bookings: bookings,
		seats:    seats,
		audit:    audit,
		clock:    clk,
		config:   config,
		timers:   make(map[uuid.UUID]*clock.Timer),
		log:      log.With(zap.String("service", "payment")),
	}
}

func (s *paymentService) timeout(method entity.PaymentMethod) time.Duration {
	switch method {
	case entity.MethodSTKPush:
		return s.config.STKTimeout
	case entity.MethodCard:
		return s.config.CardTimeout
	default:
		return s.config.BankTimeout
	}
}

func (s *paymentService) PaymentMethods() []PaymentMethodInfo {
	methods := []entity.PaymentMethod{entity.MethodSTKPush, entity.MethodCard, entity.MethodBankTransfer}
	infos := make([]PaymentMethodInfo, 0, len(methods))
	for _, m := range methods {
		t := s.timeout(m)
		infos = append(infos, PaymentMethodInfo{
			Method:        m,
			Timeout:       t,
			TimeoutSecs:   int64(t / time.Second),
			RequiresPhone: m == entity.MethodSTKPush,
			HoldsSeats:    m != entity.MethodBankTransfer,
		})
	}
	return infos
}

// ==================== INITIATE ====================

func (s *paymentService) InitiatePayment(ctx context.Context, req *request.InitiatePaymentRequest) (*entity.PaymentIntent, error) {
	if err := validateRequest(req); err != nil {
		s.log.Warn("Initiate payment validation failed", zap.Error(err))
		return nil, err
	}

	method := entity.PaymentMethod(req.Method)
	phone := utils.NormalizePhone(req.Phone)
	if method == entity.MethodSTKPush && phone == "" {
		return nil, validationErr("phone is required for %s", method)
	}

	s.mu.Lock()
	intent, booking, err := s.initiateLocked(ctx, req, method, phone)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.coverHold(ctx, booking, intent)
	return intent, nil
}

func (s *paymentService) initiateLocked(ctx context.Context, req *request.InitiatePaymentRequest, method entity.PaymentMethod, phone string) (*entity.PaymentIntent, *entity.Booking, error) {
	booking, err := s.bookings.GetBookingByPNR(ctx, req.PNR)
	if err != nil {
		return nil, nil, err
	}

	if req.IdempotencyKey != "" {
		existing, err := s.repo.FindByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, nil, fmt.Errorf("find intent by key: %w", err)
		}
		if existing != nil {
			if existing.PNR != req.PNR {
				return nil, nil, validationErr("idempotency key %s belongs to another booking", req.IdempotencyKey)
			}
			s.log.Info("Initiate replayed", zap.String("intent_id", existing.ID.String()))
			return existing, booking, nil
		}
	}

	if req.Amount != booking.Fare.GrossFare {
		s.log.Warn("Fare mismatch",
			zap.String("pnr", req.PNR),
			zap.Int64("amount", req.Amount),
			zap.Int64("gross_fare", booking.Fare.GrossFare),
		)
		return nil, nil, validationErr("amount %s does not match fare %s",
			utils.FormatCurrency(s.config.Currency, req.Amount),
			utils.FormatCurrency(s.config.Currency, booking.Fare.GrossFare))
	}
	if booking.State != entity.BookingInitiated {
		return nil, nil, fmt.Errorf("booking %s is %s, payment needs %s: %w",
			req.PNR, booking.State, entity.BookingInitiated, ErrIllegalTransition)
	}

	now := s.clock.Now()
	ttl := s.timeout(method)
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}

	intent := &entity.PaymentIntent{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		BookingID:        booking.ID,
		PNR:              booking.PNR,
		Amount:           req.Amount,
		Currency:         s.config.Currency,
		Method:           method,
		Status:           entity.PaymentCreated,
		IdempotencyKey:   key,
		GatewayReference: utils.GenerateGatewayReference(string(method)),
		Phone:            phone,
		ExpiresAt:        now.Add(ttl),
	}

	booking, err = s.bookings.TransitionTo(ctx, booking.PNR, entity.BookingAwaitingPayment,
		fmt.Sprintf("payment initiated via %s", method))
	if err != nil {
		return nil, nil, err
	}
	stored := false
	defer func() {
		if !stored {
			s.rollbackInitiation(ctx, booking.PNR)
		}
	}()

	_, err = s.audit.Record(ctx, AuditRecord{
		Event:     entity.EventPaymentIntentCreated,
		BookingID: booking.ID.String(),
		PNR:       booking.PNR,
		Actor:     utils.GetActorFromContext(ctx),
		Details: map[string]any{
			"intent_id":   intent.ID.String(),
			"amount":      intent.Amount,
			"currency":    intent.Currency,
			"method":      string(method),
			"gateway_ref": intent.GatewayReference,
			"expires_at":  intent.ExpiresAt.UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initiate payment for %s: %w", booking.PNR, err)
	}

	if err := s.repo.Create(ctx, intent); err != nil {
		s.log.Error("Failed to store intent", zap.Error(err), zap.String("pnr", booking.PNR))
		return nil, nil, fmt.Errorf("store intent for %s: %w", booking.PNR, err)
	}
	stored = true
	s.armTimerLocked(intent.ID, ttl)

	s.log.Info("Payment initiated",
		zap.String("intent_id", intent.ID.String()),
		zap.String("pnr", intent.PNR),
		zap.String("method", string(method)),
		zap.String("amount", utils.FormatCurrency(intent.Currency, intent.Amount)),
		zap.Duration("timeout", ttl),
	)
	return intent.Clone(), booking, nil
}

// rollbackInitiation returns a booking to INITIATED when its intent could
// not be recorded, so the caller can initiate again.
func (s *paymentService) rollbackInitiation(ctx context.Context, pnr string) {
	if _, err := s.bookings.TransitionTo(ctx, pnr, entity.BookingInitiated, "payment initiation failed"); err != nil {
		s.log.Error("Failed to roll back payment initiation", zap.Error(err), zap.String("pnr", pnr))
	}
}

// coverHold keeps the seat hold alive for the whole payment window. Bank
// transfers settle too slowly to hold seats; a late settlement ends in
// PAID_NO_SEAT instead.
func (s *paymentService) coverHold(ctx context.Context, booking *entity.Booking, intent *entity.PaymentIntent) {
	if intent.Method == entity.MethodBankTransfer {
		return
	}
	remaining := s.seats.GetLockCountdown(ctx, booking.LockID)
	if remaining == 0 {
		return
	}
	needed := intent.ExpiresAt.Sub(s.clock.Now())
	if needed > remaining {
		s.seats.ExtendLock(ctx, booking.LockID, needed-remaining)
	}
}

func (s *paymentService) RetryPayment(ctx context.Context, req *request.InitiatePaymentRequest) (*entity.PaymentIntent, error) {
	booking, err := s.bookings.GetBookingByPNR(ctx, req.PNR)
	if err != nil {
		return nil, err
	}

	switch booking.State {
	case entity.BookingInitiated:
	case entity.BookingAwaitingPayment, entity.BookingExpired:
		s.mu.Lock()
		open, err := s.hasOpenIntentLocked(ctx, req.PNR)
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		if open {
			return nil, validationErr("booking %s has a payment in progress", req.PNR)
		}
		if _, err := s.bookings.TransitionTo(ctx, req.PNR, entity.BookingInitiated, "payment retry"); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("retry payment for %s in state %s: %w", req.PNR, booking.State, ErrIllegalTransition)
	}

	return s.InitiatePayment(ctx, req)
}

func (s *paymentService) hasOpenIntentLocked(ctx context.Context, pnr string) (bool, error) {
	intents, err := s.repo.FindByPNR(ctx, pnr)
	if err != nil {
		return false, fmt.Errorf("find intents for %s: %w", pnr, err)
	}
	for _, in := range intents {
		if !in.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

// ==================== SETTLEMENT ====================

var settlementEvents = map[entity.PaymentStatus]entity.AuditEvent{
	entity.PaymentPending:   entity.EventPaymentPending,
	entity.PaymentSucceeded: entity.EventPaymentSucceeded,
	entity.PaymentFailed:    entity.EventPaymentFailed,
	entity.PaymentExpired:   entity.EventPaymentFailed,
}

func (s *paymentService) ApplySettlement(ctx context.Context, intentID uuid.UUID, status entity.PaymentStatus, gatewayRef string) (*entity.PaymentIntent, error) {
	event, ok := settlementEvents[status]
	if !ok {
		return nil, validationErr("settlement status %s is not accepted", status)
	}

	s.mu.Lock()
	intent, changed, err := s.settleLocked(ctx, intentID, status, event, gatewayRef)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	switch intent.Status {
	case entity.PaymentSucceeded:
		// Also on replays, so a booking left unpaid by an earlier failure
		// catches up.
		if err := s.settleBooking(ctx, intent, changed); err != nil {
			return nil, err
		}
	case entity.PaymentFailed, entity.PaymentExpired:
		if changed {
			s.log.Info("Payment not completed, booking stays retryable",
				zap.String("intent_id", intent.ID.String()),
				zap.String("pnr", intent.PNR),
				zap.String("status", string(intent.Status)),
			)
		}
	}
	return intent, nil
}

func (s *paymentService) settleLocked(ctx context.Context, intentID uuid.UUID, status entity.PaymentStatus, event entity.AuditEvent, gatewayRef string) (*entity.PaymentIntent, bool, error) {
	intent, err := s.repo.FindByID(ctx, intentID)
	if err != nil {
		return nil, false, fmt.Errorf("find intent %s: %w", intentID, err)
	}
	if intent == nil {
		return nil, false, fmt.Errorf("payment intent %s: %w", intentID, ErrNotFound)
	}

	if intent.Status == status {
		s.log.Info("Duplicate settlement ignored",
			zap.String("intent_id", intentID.String()),
			zap.String("status", string(status)),
		)
		return intent, false, nil
	}
	if intent.Status.Terminal() {
		s.log.Warn("Conflicting settlement rejected",
			zap.String("intent_id", intentID.String()),
			zap.String("current", string(intent.Status)),
			zap.String("requested", string(status)),
		)
		return nil, false, fmt.Errorf("intent %s is %s, cannot apply %s: %w",
			intentID, intent.Status, status, ErrIntentAlreadySettled)
	}

	_, err = s.audit.Record(ctx, AuditRecord{
		Event:     event,
		BookingID: intent.BookingID.String(),
		PNR:       intent.PNR,
		Actor:     utils.GetActorFromContext(ctx),
		Details: map[string]any{
			"intent_id":   intent.ID.String(),
			"from":        string(intent.Status),
			"status":      string(status),
			"amount":      intent.Amount,
			"gateway_ref": gatewayRef,
		},
	})
	if err != nil {
		return nil, false, fmt.Errorf("settle intent %s: %w", intentID, err)
	}

	now := s.clock.Now()
	intent.Status = status
	intent.UpdatedAt = now
	if gatewayRef != "" {
		intent.GatewayReference = gatewayRef
	}
	if status.Terminal() {
		intent.SettledAt = &now
		s.stopTimerLocked(intent.ID)
	}
	if err := s.repo.Update(ctx, intent); err != nil {
		s.log.Error("Failed to commit settlement after audit", zap.Error(err), zap.String("intent_id", intentID.String()))
		return nil, false, fmt.Errorf("commit settlement for %s: %w", intentID, err)
	}

	s.log.Info("Settlement applied",
		zap.String("intent_id", intentID.String()),
		zap.String("pnr", intent.PNR),
		zap.String("status", string(status)),
	)
	return intent, true, nil
}

// settleBooking applies captured money to the booking. Money that lands on
// a booking that can no longer take it is refunded once, on the first
// application of the settlement.
func (s *paymentService) settleBooking(ctx context.Context, intent *entity.PaymentIntent, changed bool) error {
	_, err := s.bookings.ApplyPaymentSuccess(ctx, intent.PNR, intent.GatewayReference)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrIllegalTransition) {
		return fmt.Errorf("apply payment to booking %s: %w", intent.PNR, err)
	}

	s.log.Warn("Payment succeeded for non-payable booking",
		zap.String("intent_id", intent.ID.String()),
		zap.String("pnr", intent.PNR),
		zap.Bool("first_application", changed),
		zap.Error(err),
	)
	if !changed {
		return nil
	}
	if err := s.bookings.RefundUnappliedPayment(ctx, intent); err != nil {
		s.log.Error("Unapplied payment not refunded, manual refund required",
			zap.String("intent_id", intent.ID.String()),
			zap.String("pnr", intent.PNR),
			zap.Error(err),
		)
	}
	return nil
}

// ==================== EXPIRY ====================

func (s *paymentService) armTimerLocked(intentID uuid.UUID, d time.Duration) {
	if t, ok := s.timers[intentID]; ok {
		t.Reset(d)
		return
	}
	s.timers[intentID] = s.clock.AfterFunc(d, func() { s.onTimer(intentID) })
}

func (s *paymentService) stopTimerLocked(intentID uuid.UUID) {
	if t, ok := s.timers[intentID]; ok {
		t.Stop()
		delete(s.timers, intentID)
	}
}

// onTimer expires an intent that is still open. The booking is left in
// AWAITING_PAYMENT so the caller can retry.
func (s *paymentService) onTimer(intentID uuid.UUID) {
	ctx := utils.SetActorContext(context.Background(), entity.SystemActor)

	s.mu.Lock()
	defer s.mu.Unlock()

	intent, err := s.repo.FindByID(ctx, intentID)
	if err != nil {
		s.log.Error("Intent timer failed to load intent", zap.Error(err), zap.String("intent_id", intentID.String()))
		return
	}
	if intent == nil || intent.Status.Terminal() {
		delete(s.timers, intentID)
		return
	}
	if remaining := intent.ExpiresAt.Sub(s.clock.Now()); remaining > 0 {
		s.armTimerLocked(intentID, remaining)
		return
	}

	_, err = s.audit.Record(ctx, AuditRecord{
		Event:     entity.EventPaymentExpired,
		BookingID: intent.BookingID.String(),
		PNR:       intent.PNR,
		Actor:     entity.SystemActor,
		Details: map[string]any{
			"intent_id": intent.ID.String(),
			"from":      string(intent.Status),
			"method":    string(intent.Method),
		},
	})
	if err != nil {
		// Leave the intent open; a late settlement can still resolve it.
		s.log.Error("Intent expiry not recorded", zap.Error(err), zap.String("intent_id", intentID.String()))
		delete(s.timers, intentID)
		return
	}

	now := s.clock.Now()
	intent.Status = entity.PaymentExpired
	intent.UpdatedAt = now
	intent.SettledAt = &now
	if err := s.repo.Update(ctx, intent); err != nil {
		s.log.Error("Failed to expire intent", zap.Error(err), zap.String("intent_id", intentID.String()))
	}
	delete(s.timers, intentID)

	s.log.Info("Payment intent expired",
		zap.String("intent_id", intentID.String()),
		zap.String("pnr", intent.PNR),
	)
}

func (s *paymentService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
}

// ==================== SIGNATURES ====================

func settlementMessage(intentID uuid.UUID, status entity.PaymentStatus, gatewayRef string) []byte {
	return []byte(intentID.String() + "|" + string(status) + "|" + gatewayRef)
}

// Sign returns the keyed BLAKE2b-256 MAC a gateway attaches to a settlement
// callback, or "" when no secret is configured.
func (s *paymentService) Sign(intentID uuid.UUID, status entity.PaymentStatus, gatewayRef string) string {
	if s.config.GatewaySecret == "" {
		return ""
	}
	mac, err := blake2b.New256([]byte(s.config.GatewaySecret))
	if err != nil {
		s.log.Error("Gateway secret unusable", zap.Error(err))
		return ""
	}
	mac.Write(settlementMessage(intentID, status, gatewayRef))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *paymentService) VerifySignature(intentID uuid.UUID, status entity.PaymentStatus, gatewayRef, signature string) error {
	if s.config.GatewaySecret == "" {
		return nil
	}
	expected := s.Sign(intentID, status, gatewayRef)
	if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) != 1 {
		s.log.Warn("Settlement signature rejected", zap.String("intent_id", intentID.String()))
		return ErrInvalidSignature
	}
	return nil
}

// ==================== QUERIES ====================

func (s *paymentService) GetIntent(ctx context.Context, id uuid.UUID) (*entity.PaymentIntent, error) {
	intent, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find intent %s: %w", id, err)
	}
	if intent == nil {
		return nil, fmt.Errorf("payment intent %s: %w", id, ErrNotFound)
	}
	return intent, nil
}

func (s *paymentService) GetIntentsByPNR(ctx context.Context, pnr string) ([]*entity.PaymentIntent, error) {
	if _, err := s.bookings.GetBookingByPNR(ctx, pnr); err != nil {
		return nil, err
	}
	intents, err := s.repo.FindByPNR(ctx, pnr)
	if err != nil {
		return nil, fmt.Errorf("find intents for %s: %w", pnr, err)
	}
	return intents, nil
}
