package request

type SearchAvailabilityRequest struct {
	CheckIn  string `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut string `json:"check_out" validate:"required,datetime=2006-01-02"`
	Guests   int    `json:"guests" validate:"gte=1"`
	Type     string `json:"type" validate:"omitempty,max=50"`
	PaginatedRequest
}
