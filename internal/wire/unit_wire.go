package wire

import (
	"hotel-booking/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireUnit(r chi.Router, unitHandler *adaptor.UnitHandler, availability *adaptor.AvailabilityHandler) {
	r.Get("/api/units", unitHandler.ListUnits)
	r.Get("/api/units/{id}", unitHandler.GetUnit)

	r.Get("/api/availability", availability.Search)
}
