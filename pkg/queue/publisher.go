package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"transit-booking/internal/data/entity"
	"transit-booking/pkg/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TicketsIssuedEvent is the message consumers use to send tickets to the
// passenger.
type TicketsIssuedEvent struct {
	BookingID string          `json:"booking_id"`
	PNR       string          `json:"pnr"`
	TripID    string          `json:"trip_id"`
	Passenger string          `json:"passenger"`
	Phone     string          `json:"phone"`
	Email     string          `json:"email,omitempty"`
	Tickets   []TicketMessage `json:"tickets"`
	IssuedAt  time.Time       `json:"issued_at"`
}

type TicketMessage struct {
	TicketNumber string `json:"ticket_number"`
	SeatNumber   string `json:"seat_number"`
	QRCode       string `json:"qr_code"`
}

func NewTicketsIssuedEvent(booking *entity.Booking) TicketsIssuedEvent {
	event := TicketsIssuedEvent{
		BookingID: booking.ID.String(),
		PNR:       booking.PNR,
		TripID:    booking.TripID,
		Passenger: booking.Passenger.Name,
		Phone:     booking.Passenger.Phone,
		Email:     booking.Passenger.Email,
		Tickets:   make([]TicketMessage, 0, len(booking.Tickets)),
		IssuedAt:  booking.UpdatedAt,
	}
	for _, t := range booking.Tickets {
		event.Tickets = append(event.Tickets, TicketMessage{
			TicketNumber: t.TicketNumber,
			SeatNumber:   t.SeatNumber,
			QRCode:       t.QRCode,
		})
	}
	return event
}

// Publisher sends ticket notifications to a durable RabbitMQ queue over
// one long-lived connection.
type Publisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	queue   string
	timeout time.Duration
	log     *zap.Logger
}

func NewPublisher(config utils.QueueConfig, log *zap.Logger) (*Publisher, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(
		config.TicketsQueue, // name
		true,                // durable
		false,               // autoDelete
		false,               // exclusive
		false,               // noWait
		nil,                 // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", config.TicketsQueue, err)
	}

	timeout := config.PublishTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Publisher{
		conn:    conn,
		ch:      ch,
		queue:   config.TicketsQueue,
		timeout: timeout,
		log:     log.With(zap.String("component", "queue"), zap.String("queue", config.TicketsQueue)),
	}, nil
}

// TicketsIssued publishes the booking's tickets. Failures are returned so
// the booking service can log them; the tickets stay issued either way.
func (p *Publisher) TicketsIssued(ctx context.Context, booking *entity.Booking) error {
	body, err := json.Marshal(NewTicketsIssuedEvent(booking))
	if err != nil {
		return fmt.Errorf("marshal tickets event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	err = p.ch.PublishWithContext(pubCtx,
		"",      // default exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    booking.PNR,
			Timestamp:    booking.UpdatedAt,
			Body:         body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		p.log.Error("Failed to publish tickets", zap.String("pnr", booking.PNR), zap.Error(err))
		return fmt.Errorf("publish tickets for %s: %w", booking.PNR, err)
	}

	p.log.Info("Tickets published", zap.String("pnr", booking.PNR), zap.Int("tickets", len(booking.Tickets)))
	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.Close(); err != nil {
		_ = p.conn.Close()
		return fmt.Errorf("close channel: %w", err)
	}
	return p.conn.Close()
}
