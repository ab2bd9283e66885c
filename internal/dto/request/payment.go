package request

type InitiatePaymentRequest struct {
	PNR            string `json:"pnr" validate:"required,min=6,max=20"`
	Amount         int64  `json:"amount" validate:"required,min=1"`
	Method         string `json:"method" validate:"required,oneof=STK_PUSH CARD BANK_TRANSFER"`
	Phone          string `json:"phone" validate:"omitempty,phone"`
	Email          string `json:"email" validate:"omitempty,email"`
	IdempotencyKey string `json:"idempotency_key" validate:"omitempty,max=64"`
}

type SettlementRequest struct {
	Status           string `json:"status" validate:"required,oneof=PENDING SUCCEEDED FAILED EXPIRED"`
	GatewayReference string `json:"gateway_reference" validate:"max=64"`
	Signature        string `json:"signature"`
}
