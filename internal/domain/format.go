package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// FormatDistance renders a distance with at most two fractional digits and
// the unit's abbreviation, e.g. "12.5 mi".
func FormatDistance(value float64, unit LengthUnit) string {
	s := strconv.FormatFloat(decimal.NewFromFloat(value).Round(2).InexactFloat64(), 'f', -1, 64)
	return s + " " + unit.Abbreviation()
}

// FormatMoney renders an amount with exactly two fractional digits, rounding half up.
func FormatMoney(amount decimal.Decimal) string {
	return "$" + amount.StringFixed(2)
}
