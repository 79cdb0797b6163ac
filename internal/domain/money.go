package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// MinorUnitExponent is the number of decimal places between major and minor units.
const MinorUnitExponent = 2

// DefaultCurrency is the only currency the ledger tracks.
const DefaultCurrency = "NGN"

var maxMinor = decimal.NewFromInt(math.MaxInt64)

// MajorToMinor converts a provider major-unit amount ("1000.00") to minor units.
func MajorToMinor(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return DecimalToMinor(d)
}

// DecimalToMinor converts a major-unit decimal to minor units.
// Fractions of a minor unit and values beyond int64 are rejected rather than
// rounded or wrapped.
func DecimalToMinor(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAmount, d.String())
	}
	minor := d.Shift(MinorUnitExponent)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("%w: %s has sub-minor precision", ErrInvalidAmount, d.String())
	}
	if minor.GreaterThan(maxMinor) {
		return 0, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d.String())
	}
	return minor.IntPart(), nil
}

// MinorToMajor formats minor units as a fixed two-place major-unit string.
func MinorToMajor(amount int64) string {
	return decimal.New(amount, -MinorUnitExponent).StringFixed(MinorUnitExponent)
}
