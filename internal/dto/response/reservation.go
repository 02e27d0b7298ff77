package response

import (
	"time"

	"hotel-booking/internal/data/entity"
	"hotel-booking/pkg/utils"
)

type GuestResponse struct {
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Email           string  `json:"email"`
	PhoneNumber     *string `json:"phone_number,omitempty"`
	SpecialRequests *string `json:"special_requests,omitempty"`
}

type ReservationResponse struct {
	ID                 string                   `json:"id"`
	ConfirmationCode   string                   `json:"confirmation_code"`
	UnitID             string                   `json:"unit_id"`
	UserID             *string                  `json:"user_id,omitempty"`
	Guest              GuestResponse            `json:"guest"`
	CheckIn            string                   `json:"check_in"`
	CheckOut           string                   `json:"check_out"`
	Nights             int                      `json:"nights"`
	Guests             int                      `json:"guests"`
	Subtotal           string                   `json:"subtotal"`
	Tax                string                   `json:"tax"`
	Total              string                   `json:"total"`
	Paid               bool                     `json:"paid"`
	Status             entity.ReservationStatus `json:"status"`
	CancellationReason *string                  `json:"cancellation_reason,omitempty"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}

type ReservationDetailResponse struct {
	ReservationResponse
	Unit          *UnitResponse      `json:"unit,omitempty"`
	Payments      []PaymentResponse  `json:"payments"`
	Notifications []DispatchResponse `json:"notifications"`
}

type DispatchResponse struct {
	ID        string                 `json:"id"`
	Key       string                 `json:"key"`
	Kind      entity.DispatchKind    `json:"kind"`
	Outcome   entity.DispatchOutcome `json:"outcome"`
	Attempts  int                    `json:"attempts"`
	LastError *string                `json:"last_error,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func ReservationToResponse(r *entity.Reservation) ReservationResponse {
	resp := ReservationResponse{
		ID:               r.ID.String(),
		ConfirmationCode: r.ConfirmationCode,
		UnitID:           r.UnitID.String(),
		Guest: GuestResponse{
			FirstName:       r.Guest.FirstName,
			LastName:        r.Guest.LastName,
			Email:           r.Guest.Email,
			PhoneNumber:     r.Guest.Phone,
			SpecialRequests: r.Guest.SpecialRequests,
		},
		CheckIn:            r.CheckIn.Format(utils.DateLayout),
		CheckOut:           r.CheckOut.Format(utils.DateLayout),
		Nights:             r.Stay().Nights(),
		Guests:             r.GuestCount,
		Subtotal:           r.Subtotal.StringFixed(2),
		Tax:                r.Tax.StringFixed(2),
		Total:              r.Total.StringFixed(2),
		Paid:               r.Paid,
		Status:             r.Status,
		CancellationReason: r.CancellationReason,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
	if r.UserID != nil {
		id := r.UserID.String()
		resp.UserID = &id
	}
	return resp
}

func DispatchToResponse(e *entity.DispatchEntry) DispatchResponse {
	return DispatchResponse{
		ID:        e.ID.String(),
		Key:       e.IdempotencyKey,
		Kind:      e.Kind,
		Outcome:   e.Outcome,
		Attempts:  e.Attempts,
		LastError: e.LastError,
		CreatedAt: e.CreatedAt,
	}
}
