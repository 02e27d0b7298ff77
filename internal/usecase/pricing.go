package usecase

import (
	"hotel-booking/internal/data/entity"

	"github.com/shopspring/decimal"
)

// TaxPolicy derives the tax owed on a stay subtotal. Implementations must not
// return a negative amount.
type TaxPolicy interface {
	Tax(subtotal decimal.Decimal, unit *entity.Unit, stay entity.DateRange) decimal.Decimal
}

// FlatRateTax charges Rate on the subtotal, e.g. 0.08 for 8%.
type FlatRateTax struct {
	Rate decimal.Decimal
}

func (p FlatRateTax) Tax(subtotal decimal.Decimal, _ *entity.Unit, _ entity.DateRange) decimal.Decimal {
	if p.Rate.IsNegative() {
		return decimal.Zero
	}
	return subtotal.Mul(p.Rate).Round(2)
}

type Quote struct {
	Nights   int
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// PriceStay computes nights x nightly rate plus policy tax, rounded to cents.
func PriceStay(unit *entity.Unit, stay entity.DateRange, policy TaxPolicy) Quote {
	nights := stay.Nights()
	subtotal := unit.NightlyRate.Mul(decimal.NewFromInt(int64(nights))).Round(2)

	tax := decimal.Zero
	if policy != nil {
		tax = policy.Tax(subtotal, unit, stay)
		if tax.IsNegative() {
			tax = decimal.Zero
		}
	}
	tax = tax.Round(2)

	return Quote{
		Nights:   nights,
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
