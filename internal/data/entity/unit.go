package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UnitStatus string

const (
	UnitStatusAvailable   UnitStatus = "available"
	UnitStatusOccupied    UnitStatus = "occupied"
	UnitStatusCleaning    UnitStatus = "cleaning"
	UnitStatusMaintenance UnitStatus = "maintenance"
)

// Unit is a bookable room or suite. Catalog management owns it; the booking
// core only reads it.
type Unit struct {
	ID          uuid.UUID       `db:"id"`
	RoomNumber  string          `db:"room_number"`
	Type        string          `db:"unit_type"`
	Capacity    int             `db:"capacity"`
	NightlyRate decimal.Decimal `db:"nightly_rate"`
	Status      UnitStatus      `db:"status"`
}

// UnitFilter narrows a catalog listing. Zero values disable a filter.
type UnitFilter struct {
	MinCapacity int
	Type        string
}

// AvailabilityQuery is a validated search over the catalog.
type AvailabilityQuery struct {
	Stay   DateRange
	Guests int
	Type   string
	Limit  int
	Offset int
}
