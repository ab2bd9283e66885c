package queue

import (
	"encoding/json"
	"testing"
	"time"

	"transit-booking/internal/data/entity"

	"github.com/google/uuid"
)

func TestNewTicketsIssuedEvent(t *testing.T) {
	issued := time.Date(2026, 3, 2, 6, 0, 1, 0, time.UTC)
	booking := &entity.Booking{
		Base:      entity.Base{ID: uuid.New(), UpdatedAt: issued},
		PNR:       "LTR0000011000",
		TripID:    "T1",
		Passenger: entity.Passenger{Name: "Amina Juma", Phone: "+255712345678"},
		Tickets: []entity.Ticket{
			{TicketNumber: "TKT-1", SeatNumber: "1A", QRCode: "QR_LTR0000011000_1A"},
			{TicketNumber: "TKT-2", SeatNumber: "1B", QRCode: "QR_LTR0000011000_1B"},
		},
	}

	event := NewTicketsIssuedEvent(booking)
	if event.PNR != booking.PNR || event.BookingID != booking.ID.String() || !event.IssuedAt.Equal(issued) {
		t.Fatalf("event = %+v", event)
	}
	if len(event.Tickets) != 2 || event.Tickets[1].SeatNumber != "1B" {
		t.Fatalf("tickets = %+v", event.Tickets)
	}

	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := decoded["email"]; ok {
		t.Fatalf("empty email should be omitted: %s", body)
	}
	if decoded["phone"] != "+255712345678" {
		t.Fatalf("phone = %v", decoded["phone"])
	}
}
