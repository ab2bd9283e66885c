package request

type HoldSeatsRequest struct {
	UserID  string   `json:"user_id" validate:"required,max=64"`
	SeatIDs []string `json:"seat_ids" validate:"required,min=1,max=10,dive,required"`
	Channel string   `json:"channel" validate:"required,channel"`
}

type ExtendHoldRequest struct {
	ExtraSeconds int `json:"extra_seconds" validate:"required,min=1,max=900"`
}

type PassengerRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Phone    string `json:"phone" validate:"required,phone"`
	Email    string `json:"email" validate:"required,email"`
	IDNumber string `json:"id_number" validate:"omitempty,max=32"`
}

type CreateBookingRequest struct {
	TripID      string           `json:"trip_id" validate:"required"`
	UserID      string           `json:"user_id" validate:"required,max=64"`
	LockID      string           `json:"lock_id" validate:"required,uuid"`
	SeatNumbers []string         `json:"seat_numbers" validate:"required,min=1,max=10,dive,required"`
	Channel     string           `json:"channel" validate:"required,channel"`
	PromoCode   string           `json:"promo_code" validate:"omitempty,max=20"`
	Passenger   PassengerRequest `json:"passenger"`
}

type TransitionRequest struct {
	State  string `json:"state" validate:"required"`
	Reason string `json:"reason" validate:"max=200"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" validate:"max=200"`
}

type ReassignSeatsRequest struct {
	LockID string `json:"lock_id" validate:"required,uuid"`
}
