package request

type CreateReservationRequest struct {
	UnitID          string  `json:"unit_id" validate:"required,uuid4"`
	FirstName       string  `json:"first_name" validate:"required,max=100"`
	LastName        string  `json:"last_name" validate:"required,max=100"`
	Email           string  `json:"email" validate:"required,email,max=255"`
	PhoneNumber     *string `json:"phone_number,omitempty" validate:"omitempty,max=50"`
	SpecialRequests *string `json:"special_requests,omitempty" validate:"omitempty,max=1000"`
	CheckIn         string  `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut        string  `json:"check_out" validate:"required,datetime=2006-01-02"`
	Guests          int     `json:"guests" validate:"gte=1"`
}

type TransitionReservationRequest struct {
	Status string  `json:"status" validate:"required,oneof=pending confirmed checked_in checked_out cancelled"`
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type CancelReservationRequest struct {
	Reason *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type LookupReservationRequest struct {
	Code  string `json:"code" validate:"required,len=10,alphanum"`
	Email string `json:"email" validate:"required,email"`
}

type ListReservationsRequest struct {
	Status string `json:"status" validate:"omitempty,oneof=pending confirmed checked_in checked_out cancelled"`
	Search string `json:"search" validate:"omitempty,max=100"`
	PaginatedRequest
}

type GuestHistoryRequest struct {
	Scope string `json:"status" validate:"omitempty,oneof=upcoming past"`
}

type RetryDispatchRequest struct {
	Kind string `json:"kind" validate:"required,oneof=booking-confirmed booking-cancelled payment-notification"`
}
