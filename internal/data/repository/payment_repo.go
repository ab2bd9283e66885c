package repository

import (
	"context"
	"fmt"
	"sync"

	"transit-booking/internal/data/entity"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentRepository interface {
	Create(ctx context.Context, intent *entity.PaymentIntent) error
	Update(ctx context.Context, intent *entity.PaymentIntent) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentIntent, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*entity.PaymentIntent, error)
	FindByPNR(ctx context.Context, pnr string) ([]*entity.PaymentIntent, error)
}

type paymentRepository struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*entity.PaymentIntent
	byKey map[string]uuid.UUID
	byPNR map[string][]uuid.UUID
	log   *zap.Logger
}

func NewPaymentRepository(log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		byID:  make(map[uuid.UUID]*entity.PaymentIntent),
		byKey: make(map[string]uuid.UUID),
		byPNR: make(map[string][]uuid.UUID),
		log:   log.With(zap.String("repository", "payment")),
	}
}

func (r *paymentRepository) Create(ctx context.Context, intent *entity.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[intent.ID]; exists {
		return fmt.Errorf("create payment intent %s: %w", intent.ID, ErrDuplicate)
	}
	if intent.IdempotencyKey != "" {
		if _, exists := r.byKey[intent.IdempotencyKey]; exists {
			r.log.Warn("Idempotency key reused", zap.String("idempotency_key", intent.IdempotencyKey))
			return fmt.Errorf("create payment intent key %s: %w", intent.IdempotencyKey, ErrDuplicate)
		}
		r.byKey[intent.IdempotencyKey] = intent.ID
	}

	r.byID[intent.ID] = intent.Clone()
	r.byPNR[intent.PNR] = append(r.byPNR[intent.PNR], intent.ID)
	return nil
}

func (r *paymentRepository) Update(ctx context.Context, intent *entity.PaymentIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[intent.ID]; !exists {
		return fmt.Errorf("update payment intent %s: not found", intent.ID)
	}
	r.byID[intent.ID] = intent.Clone()
	return nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	intent, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	return intent.Clone(), nil
}

func (r *paymentRepository) FindByIdempotencyKey(ctx context.Context, key string) (*entity.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byKey[key]
	if !ok {
		return nil, nil
	}
	return r.byID[id].Clone(), nil
}

// FindByPNR returns every attempt for the booking, oldest first.
func (r *paymentRepository) FindByPNR(ctx context.Context, pnr string) ([]*entity.PaymentIntent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.byPNR[pnr]
	intents := make([]*entity.PaymentIntent, 0, len(ids))
	for _, id := range ids {
		intents = append(intents, r.byID[id].Clone())
	}
	return intents, nil
}
