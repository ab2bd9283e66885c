package usecase

import (
	"context"

	"transit-booking/internal/data/entity"
	"transit-booking/pkg/utils"

	"go.uber.org/zap"
)

// Refunder starts a refund for a cancelled paid booking. The mechanics
// (gateway reversal, bank transfer) belong to the implementation.
type Refunder interface {
	InitiateRefund(ctx context.Context, booking *entity.Booking, reason string) (string, error)
}

// Notifier tells the passenger their tickets are ready.
type Notifier interface {
	TicketsIssued(ctx context.Context, booking *entity.Booking) error
}

type logRefunder struct {
	currency string
	log      *zap.Logger
}

// NewLogRefunder records refund requests in the log and returns a
// reference derived from the PNR.
func NewLogRefunder(currency string, log *zap.Logger) Refunder {
	return &logRefunder{
		currency: currency,
		log:      log.With(zap.String("collaborator", "refund")),
	}
}

func (r *logRefunder) InitiateRefund(ctx context.Context, booking *entity.Booking, reason string) (string, error) {
	ref := "RF-" + booking.PNR
	r.log.Info("Refund initiated",
		zap.String("pnr", booking.PNR),
		zap.String("refund_ref", ref),
		zap.String("amount", utils.FormatCurrency(r.currency, booking.Fare.GrossFare)),
		zap.String("reason", reason),
	)
	return ref, nil
}

type logNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) Notifier {
	return &logNotifier{log: log.With(zap.String("collaborator", "notify"))}
}

func (n *logNotifier) TicketsIssued(ctx context.Context, booking *entity.Booking) error {
	numbers := make([]string, 0, len(booking.Tickets))
	for _, t := range booking.Tickets {
		numbers = append(numbers, t.TicketNumber)
	}
	n.log.Info("Tickets ready",
		zap.String("pnr", booking.PNR),
		zap.String("phone", booking.Passenger.Phone),
		zap.String("email", booking.Passenger.Email),
		zap.Strings("tickets", numbers),
	)
	return nil
}
