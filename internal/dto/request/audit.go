package request

type AuditQueryRequest struct {
	BookingID string `json:"booking_id"`
	PNR       string `json:"pnr"`
	Event     string `json:"event"`
	ActorID   string `json:"actor_id"`
}
