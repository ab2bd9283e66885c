package response

import (
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/pkg/utils"
)

type PassengerResponse struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	IDNumber string `json:"id_number,omitempty"`
}

type TicketResponse struct {
	ID            string              `json:"id"`
	TicketNumber  string              `json:"ticket_number"`
	SeatNumber    string              `json:"seat_number"`
	PassengerName string              `json:"passenger_name"`
	TripID        string              `json:"trip_id"`
	IssuedAt      time.Time           `json:"issued_at"`
	Status        entity.TicketStatus `json:"status"`
	QRCode        string              `json:"qr_code"`
}

type BookingResponse struct {
	ID          string               `json:"id"`
	PNR         string               `json:"pnr"`
	TripID      string               `json:"trip_id"`
	UserID      string               `json:"user_id"`
	LockID      string               `json:"lock_id"`
	State       entity.BookingState  `json:"state"`
	Channel     entity.Channel       `json:"channel"`
	SeatNumbers []string             `json:"seat_numbers"`
	Passenger   PassengerResponse    `json:"passenger"`
	Fare        entity.FareBreakdown `json:"fare"`
	FareDisplay string               `json:"fare_display"`
	Tickets     []TicketResponse     `json:"tickets,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

func formatAmount(currency string, amount int64) string {
	return utils.FormatCurrency(currency, amount)
}

func TicketToResponse(t entity.Ticket) TicketResponse {
	return TicketResponse{
		ID:            t.ID.String(),
		TicketNumber:  t.TicketNumber,
		SeatNumber:    t.SeatNumber,
		PassengerName: t.PassengerName,
		TripID:        t.TripID,
		IssuedAt:      t.IssuedAt,
		Status:        t.Status,
		QRCode:        t.QRCode,
	}
}

func BookingToResponse(b *entity.Booking, currency string) BookingResponse {
	var tickets []TicketResponse
	for _, t := range b.Tickets {
		tickets = append(tickets, TicketToResponse(t))
	}

	return BookingResponse{
		ID:          b.ID.String(),
		PNR:         b.PNR,
		TripID:      b.TripID,
		UserID:      b.UserID,
		LockID:      b.LockID.String(),
		State:       b.State,
		Channel:     b.Channel,
		SeatNumbers: b.SeatNumbers,
		Passenger: PassengerResponse{
			Name:     b.Passenger.Name,
			Phone:    b.Passenger.Phone,
			Email:    b.Passenger.Email,
			IDNumber: b.Passenger.IDNumber,
		},
		Fare:        b.Fare,
		FareDisplay: formatAmount(currency, b.Fare.GrossFare),
		Tickets:     tickets,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func BookingsToResponse(bookings []*entity.Booking, currency string) []BookingResponse {
	out := make([]BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, BookingToResponse(b, currency))
	}
	return out
}
