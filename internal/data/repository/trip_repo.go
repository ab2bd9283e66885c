package repository

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"transit-booking/internal/data/entity"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type TripRepository interface {
	FindAll(ctx context.Context) ([]*entity.Trip, error)
	FindByID(ctx context.Context, id string) (*entity.Trip, error)
}

type tripRepository struct {
	trips map[string]*entity.Trip
	order []string
	log   *zap.Logger
}

// NewTripRepository serves a fixed catalog. Trips are immutable once
// loaded, so no locking is needed.
func NewTripRepository(trips []*entity.Trip, log *zap.Logger) TripRepository {
	r := &tripRepository{
		trips: make(map[string]*entity.Trip, len(trips)),
		log:   log.With(zap.String("repository", "trip")),
	}
	for _, t := range trips {
		if _, dup := r.trips[t.ID]; dup {
			r.log.Warn("Duplicate trip id ignored", zap.String("trip_id", t.ID))
			continue
		}
		r.trips[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	return r
}

func (r *tripRepository) FindAll(ctx context.Context) ([]*entity.Trip, error) {
	trips := make([]*entity.Trip, 0, len(r.order))
	for _, id := range r.order {
		trips = append(trips, r.trips[id])
	}
	sort.SliceStable(trips, func(i, j int) bool {
		return trips[i].DepartureTime.Before(trips[j].DepartureTime)
	})
	return trips, nil
}

func (r *tripRepository) FindByID(ctx context.Context, id string) (*entity.Trip, error) {
	trip, ok := r.trips[id]
	if !ok {
		return nil, nil
	}
	return trip, nil
}

type tripCatalog struct {
	Trips []*entity.Trip `yaml:"trips"`
}

// LoadTrips reads a YAML trip catalog:
//
//	trips:
//	  - id: DAR-ARU-0700
//	    origin: Dar es Salaam
//	    base_fare: 45000
//	    layout: {rows: 10, seats_per_row: 4}
func LoadTrips(path string) ([]*entity.Trip, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read trip catalog %s: %w", path, err)
	}

	var catalog tripCatalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse trip catalog %s: %w", path, err)
	}

	for _, t := range catalog.Trips {
		if err := validateTrip(t); err != nil {
			return nil, fmt.Errorf("trip catalog %s: %w", path, err)
		}
	}

	return catalog.Trips, nil
}

func validateTrip(t *entity.Trip) error {
	if t.ID == "" {
		return fmt.Errorf("trip without id")
	}
	if t.BaseFare < 0 {
		return fmt.Errorf("trip %s: negative base fare", t.ID)
	}

	seats := t.Layout.Seats()
	if len(seats) == 0 {
		return fmt.Errorf("trip %s: empty seat layout", t.ID)
	}

	known := make(map[string]struct{}, len(seats))
	for _, s := range seats {
		known[s] = struct{}{}
	}
	for _, s := range append(append([]string{}, t.Layout.Occupied...), t.Layout.Blocked...) {
		if _, ok := known[s]; !ok {
			return fmt.Errorf("trip %s: seat %s not in layout", t.ID, s)
		}
	}
	return nil
}

// DemoTrips is the built-in catalog used when no TRIPS_FILE is configured.
// Departures are scheduled relative to now.
func DemoTrips(now time.Time) []*entity.Trip {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	return []*entity.Trip{
		{
			ID:            "DAR-ARU-0700",
			RouteID:       "DAR-ARU",
			OperatorID:    "kilimanjaro-express",
			VehicleID:     "T 123 ABC",
			Origin:        "Dar es Salaam",
			Destination:   "Arusha",
			DepartureTime: day.Add(7 * time.Hour),
			ArrivalTime:   day.Add(17 * time.Hour),
			Class:         entity.ClassEconomy,
			BaseFare:      45000,
			Layout:        entity.SeatLayout{Rows: 12, SeatsPerRow: 4, Blocked: []string{"1A"}},
		},
		{
			ID:            "DAR-DOD-0830",
			RouteID:       "DAR-DOD",
			OperatorID:    "shabiby-line",
			VehicleID:     "T 456 DEF",
			Origin:        "Dar es Salaam",
			Destination:   "Dodoma",
			DepartureTime: day.Add(8*time.Hour + 30*time.Minute),
			ArrivalTime:   day.Add(15*time.Hour + 30*time.Minute),
			Class:         entity.ClassBusiness,
			BaseFare:      35000,
			Layout:        entity.SeatLayout{Rows: 10, SeatsPerRow: 4, Occupied: []string{"2B", "2C"}},
		},
		{
			ID:            "DAR-MWZ-0600",
			RouteID:       "DAR-MWZ",
			OperatorID:    "abood-bus",
			VehicleID:     "T 789 GHI",
			Origin:        "Dar es Salaam",
			Destination:   "Mwanza",
			DepartureTime: day.Add(6 * time.Hour),
			ArrivalTime:   day.Add(22 * time.Hour),
			Class:         entity.ClassRoyal,
			BaseFare:      70000,
			Layout:        entity.SeatLayout{Rows: 9, SeatsPerRow: 5},
		},
	}
}
