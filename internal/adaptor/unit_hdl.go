package adaptor

import (
	"net/http"

	"hotel-booking/internal/usecase"
	"hotel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type UnitHandler struct {
	service usecase.UnitService
	log     *zap.Logger
}

func NewUnitHandler(service usecase.UnitService, log *zap.Logger) *UnitHandler {
	return &UnitHandler{
		service: service,
		log:     log.With(zap.String("handler", "unit")),
	}
}

// ListUnits handles GET /api/units
func (h *UnitHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	units, err := h.service.ListUnits(r.Context(), utils.ParseInt(query.Get("min_capacity"), 0), query.Get("type"))
	if err != nil {
		writeError(w, h.log, err, "list units")
		return
	}

	utils.ResponseSuccess(w, "success", units)
}

// GetUnit handles GET /api/units/{id}
func (h *UnitHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	unit, err := h.service.GetUnit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err, "get unit")
		return
	}

	utils.ResponseSuccess(w, "success", unit)
}
