package usecase

import (
	"context"
	"fmt"

	"transit-booking/internal/data/entity"
	"transit-booking/internal/data/repository"

	"go.uber.org/zap"
)

type TripService interface {
	GetAllTrips(ctx context.Context) ([]*entity.Trip, error)
	GetTripByID(ctx context.Context, id string) (*entity.Trip, error)
}

type tripService struct {
	repo repository.TripRepository
	log  *zap.Logger
}

func NewTripService(repo repository.TripRepository, log *zap.Logger) TripService {
	return &tripService{
		repo: repo,
		log:  log.With(zap.String("service", "trip")),
	}
}

func (s *tripService) GetAllTrips(ctx context.Context) ([]*entity.Trip, error) {
	trips, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get trips: %w", err)
	}
	return trips, nil
}

func (s *tripService) GetTripByID(ctx context.Context, id string) (*entity.Trip, error) {
	trip, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find trip %s: %w", id, err)
	}
	if trip == nil {
		return nil, fmt.Errorf("trip %s: %w", id, ErrNotFound)
	}
	return trip, nil
}
