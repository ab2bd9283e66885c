package response

import (
	"time"

	"transit-booking/internal/data/entity"
)

type TripResponse struct {
	ID            string    `json:"id"`
	RouteID       string    `json:"route_id"`
	OperatorID    string    `json:"operator_id,omitempty"`
	VehicleID     string    `json:"vehicle_id,omitempty"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departure_time"`
	ArrivalTime   time.Time `json:"arrival_time"`
	Class         string    `json:"class"`
	BaseFare      int64     `json:"base_fare"`
	BaseFareText  string    `json:"base_fare_display"`
	TotalSeats    int       `json:"total_seats"`
}

type FareResponse struct {
	TripID    string               `json:"trip_id"`
	Seats     int                  `json:"seats"`
	Channel   string               `json:"channel"`
	Breakdown entity.FareBreakdown `json:"breakdown"`
	Display   string               `json:"display"`
}

func TripToResponse(trip *entity.Trip, currency string) TripResponse {
	return TripResponse{
		ID:            trip.ID,
		RouteID:       trip.RouteID,
		OperatorID:    trip.OperatorID,
		VehicleID:     trip.VehicleID,
		Origin:        trip.Origin,
		Destination:   trip.Destination,
		DepartureTime: trip.DepartureTime,
		ArrivalTime:   trip.ArrivalTime,
		Class:         string(trip.Class),
		BaseFare:      trip.BaseFare,
		BaseFareText:  formatAmount(currency, trip.BaseFare),
		TotalSeats:    trip.TotalSeats(),
	}
}

func TripsToResponse(trips []*entity.Trip, currency string) []TripResponse {
	out := make([]TripResponse, 0, len(trips))
	for _, t := range trips {
		out = append(out, TripToResponse(t, currency))
	}
	return out
}
