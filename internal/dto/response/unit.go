package response

import (
	"hotel-booking/internal/data/entity"
)

type UnitResponse struct {
	ID          string            `json:"id"`
	RoomNumber  string            `json:"room_number"`
	Type        string            `json:"type"`
	Capacity    int               `json:"capacity"`
	NightlyRate string            `json:"nightly_rate"`
	Status      entity.UnitStatus `json:"status"`
}

// AvailableUnitResponse adds the stay price before tax.
type AvailableUnitResponse struct {
	UnitResponse
	Nights   int    `json:"nights"`
	Subtotal string `json:"subtotal"`
}

type AvailabilityResponse struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Guests   int    `json:"guests"`
	*PaginatedResponse[AvailableUnitResponse]
}

func UnitToResponse(u *entity.Unit) UnitResponse {
	return UnitResponse{
		ID:          u.ID.String(),
		RoomNumber:  u.RoomNumber,
		Type:        u.Type,
		Capacity:    u.Capacity,
		NightlyRate: u.NightlyRate.StringFixed(2),
		Status:      u.Status,
	}
}
