package response

import (
	"time"

	"transit-booking/internal/data/entity"
)

type PaymentIntentResponse struct {
	ID               string               `json:"id"`
	BookingID        string               `json:"booking_id"`
	PNR              string               `json:"pnr"`
	Amount           int64                `json:"amount"`
	AmountDisplay    string               `json:"amount_display"`
	Currency         string               `json:"currency"`
	Method           entity.PaymentMethod `json:"method"`
	Status           entity.PaymentStatus `json:"status"`
	IdempotencyKey   string               `json:"idempotency_key"`
	GatewayReference string               `json:"gateway_reference"`
	CreatedAt        time.Time            `json:"created_at"`
	ExpiresAt        time.Time            `json:"expires_at"`
	SettledAt        *time.Time           `json:"settled_at,omitempty"`
}

func PaymentIntentToResponse(p *entity.PaymentIntent) PaymentIntentResponse {
	return PaymentIntentResponse{
		ID:               p.ID.String(),
		BookingID:        p.BookingID.String(),
		PNR:              p.PNR,
		Amount:           p.Amount,
		AmountDisplay:    formatAmount(p.Currency, p.Amount),
		Currency:         p.Currency,
		Method:           p.Method,
		Status:           p.Status,
		IdempotencyKey:   p.IdempotencyKey,
		GatewayReference: p.GatewayReference,
		CreatedAt:        p.CreatedAt,
		ExpiresAt:        p.ExpiresAt,
		SettledAt:        p.SettledAt,
	}
}

func PaymentIntentsToResponse(intents []*entity.PaymentIntent) []PaymentIntentResponse {
	out := make([]PaymentIntentResponse, 0, len(intents))
	for _, p := range intents {
		out = append(out, PaymentIntentToResponse(p))
	}
	return out
}
