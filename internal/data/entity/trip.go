package entity

import (
	"fmt"
	"time"
)

type TripClass string

const (
	ClassEconomy  TripClass = "Economy"
	ClassBusiness TripClass = "Business"
	ClassRoyal    TripClass = "Royal"
)

type Trip struct {
	ID            string     `yaml:"id"`
	RouteID       string     `yaml:"route_id"`
	OperatorID    string     `yaml:"operator_id"`
	VehicleID     string     `yaml:"vehicle_id"`
	Origin        string     `yaml:"origin"`
	Destination   string     `yaml:"destination"`
	DepartureTime time.Time  `yaml:"departure_time"`
	ArrivalTime   time.Time  `yaml:"arrival_time"`
	Class         TripClass  `yaml:"class"`
	BaseFare      int64      `yaml:"base_fare"` // per seat, TZS
	Layout        SeatLayout `yaml:"layout"`
}

func (t *Trip) TotalSeats() int {
	return len(t.Layout.Seats())
}

// SeatLayout describes the physical seats of a vehicle. Either Rows and
// SeatsPerRow generate labels (1A, 1B, ...) or SeatIDs lists them
// explicitly.
type SeatLayout struct {
	Rows        int      `yaml:"rows"`
	SeatsPerRow int      `yaml:"seats_per_row"`
	SeatIDs     []string `yaml:"seat_ids"`
	Occupied    []string `yaml:"occupied"`
	Blocked     []string `yaml:"blocked"`
}

const seatColumns = "ABCDE"

// Seats returns every seat label in row order.
func (l SeatLayout) Seats() []string {
	if len(l.SeatIDs) > 0 {
		out := make([]string, len(l.SeatIDs))
		copy(out, l.SeatIDs)
		return out
	}

	perRow := l.SeatsPerRow
	if perRow > len(seatColumns) {
		perRow = len(seatColumns)
	}

	seats := make([]string, 0, l.Rows*perRow)
	for row := 1; row <= l.Rows; row++ {
		for col := 0; col < perRow; col++ {
			seats = append(seats, fmt.Sprintf("%d%c", row, seatColumns[col]))
		}
	}
	return seats
}
