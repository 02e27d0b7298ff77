package adaptor

import (
	"net/http"

	"hotel-booking/internal/dto/request"
	"hotel-booking/internal/usecase"
	"hotel-booking/pkg/utils"

	"go.uber.org/zap"
)

type AvailabilityHandler struct {
	service usecase.AvailabilityService
	log     *zap.Logger
}

func NewAvailabilityHandler(service usecase.AvailabilityService, log *zap.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log.With(zap.String("handler", "availability")),
	}
}

// Search handles GET /api/availability
func (h *AvailabilityHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := &request.SearchAvailabilityRequest{
		CheckIn:  query.Get("check_in"),
		CheckOut: query.Get("check_out"),
		Guests:   utils.ParseInt(query.Get("guests"), 0),
		Type:     query.Get("type"),
		PaginatedRequest: request.PaginatedRequest{
			Page:     utils.ParseInt(query.Get("page"), 1),
			PageSize: utils.ParseInt(query.Get("page_size"), 20),
		},
	}

	result, err := h.service.Search(r.Context(), req)
	if err != nil {
		writeError(w, h.log, err, "search availability")
		return
	}

	utils.ResponseSuccess(w, "success", result)
}
