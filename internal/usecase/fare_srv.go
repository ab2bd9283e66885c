package usecase

import (
	"context"
	"fmt"
	"strings"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"
	"transit-booking/pkg/utils"

	"go.uber.org/zap"
)

type CommissionPolicy string

const (
	CommissionAgentOnly CommissionPolicy = "agent_only"
	CommissionAll       CommissionPolicy = "all"
	CommissionNone      CommissionPolicy = "none"
)

const bpsDenominator = 10000

type FareService interface {
	// CalculateFare is pure: the same trip, count and channel always give
	// the same breakdown.
	CalculateFare(trip *entity.Trip, seatCount int, channel entity.Channel) (entity.FareBreakdown, error)
	ApplyPromoCode(fare entity.FareBreakdown, code string) (entity.FareBreakdown, bool)
	ValidateCompliance(fare entity.FareBreakdown) error
	Quote(ctx context.Context, tripID string, seatCount int, channel entity.Channel, promoCode string) (entity.FareBreakdown, error)
}

type fareService struct {
	trips  repository.TripRepository
	config utils.FareConfig
	policy CommissionPolicy
	log    *zap.Logger
}

func NewFareService(trips repository.TripRepository, config utils.FareConfig, log *zap.Logger) FareService {
	policy := CommissionPolicy(strings.ToLower(config.CommissionPolicy))
	switch policy {
	case CommissionAgentOnly, CommissionAll, CommissionNone:
	default:
		log.Warn("Unknown commission policy, using agent_only", zap.String("policy", config.CommissionPolicy))
		policy = CommissionAgentOnly
	}

	return &fareService{
		trips:  trips,
		config: config,
		policy: policy,
		log:    log.With(zap.String("service", "fare")),
	}
}

// applyRate rounds half up per component, in integer arithmetic.
func applyRate(amount, bps int64) int64 {
	return (amount*bps + bpsDenominator/2) / bpsDenominator
}

func (s *fareService) commissionApplies(channel entity.Channel) bool {
	switch s.policy {
	case CommissionAll:
		return true
	case CommissionNone:
		return false
	default:
		return channel == entity.ChannelAgent
	}
}

func (s *fareService) CalculateFare(trip *entity.Trip, seatCount int, channel entity.Channel) (entity.FareBreakdown, error) {
	if trip == nil {
		return entity.FareBreakdown{}, validationErr("trip is required")
	}
	if seatCount < 1 {
		return entity.FareBreakdown{}, validationErr("seat count must be at least 1, got %d", seatCount)
	}
	if trip.BaseFare < 0 {
		return entity.FareBreakdown{}, validationErr("trip %s has negative base fare", trip.ID)
	}
	if !channel.Valid() {
		return entity.FareBreakdown{}, validationErr("unknown channel %q", channel)
	}

	base := trip.BaseFare * int64(seatCount)
	fare := entity.FareBreakdown{
		BaseFare:       base,
		RegulatoryFee:  applyRate(base, s.config.RegulatoryBPS),
		TransactionFee: applyRate(base, s.config.TransactionBPS),
	}
	if s.commissionApplies(channel) {
		fare.Commission = applyRate(base, s.config.CommissionBPS)
	}
	fare.GrossFare = fare.ComponentSum()

	return fare, nil
}

// ApplyPromoCode discounts the base fare only; fees stay as computed on the
// undiscounted base. Unknown codes leave the fare unchanged.
func (s *fareService) ApplyPromoCode(fare entity.FareBreakdown, code string) (entity.FareBreakdown, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	bps, ok := s.config.PromoCodes[code]
	if !ok || fare.PromoCode != "" {
		return fare, false
	}

	fare.Discount = applyRate(fare.BaseFare, bps)
	fare.PromoCode = code
	fare.GrossFare = fare.ComponentSum()
	return fare, true
}

func (s *fareService) ValidateCompliance(fare entity.FareBreakdown) error {
	expected := applyRate(fare.BaseFare, s.config.RegulatoryBPS)
	if fare.RegulatoryFee < expected {
		return validationErr("regulatory fee %d below required %d", fare.RegulatoryFee, expected)
	}
	if fare.GrossFare != fare.ComponentSum() {
		return validationErr("gross fare %d does not equal component sum %d", fare.GrossFare, fare.ComponentSum())
	}
	return nil
}

func (s *fareService) Quote(ctx context.Context, tripID string, seatCount int, channel entity.Channel, promoCode string) (entity.FareBreakdown, error) {
	trip, err := s.trips.FindByID(ctx, tripID)
	if err != nil {
		return entity.FareBreakdown{}, fmt.Errorf("find trip %s: %w", tripID, err)
	}
	if trip == nil {
		return entity.FareBreakdown{}, fmt.Errorf("trip %s: %w", tripID, ErrNotFound)
	}

	fare, err := s.CalculateFare(trip, seatCount, channel)
	if err != nil {
		return entity.FareBreakdown{}, err
	}

	if promoCode != "" {
		if discounted, ok := s.ApplyPromoCode(fare, promoCode); ok {
			fare = discounted
		} else {
			s.log.Debug("Promo code not applied", zap.String("code", promoCode))
		}
	}
	return fare, nil
}
