package decimal

import (
	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by reportable TND
// amounts (the dinar subdivides into 1000 millimes).
const Scale = 3

// Zero is decimal zero
var Zero = decimal.Zero

// FromInt creates decimal from int
func FromInt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// FromFloat creates decimal from float, rounded to millime precision
func FromFloat(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(Scale)
}

// FromString parses decimal from string
func FromString(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// MustFromString parses decimal from string, panics on error
func MustFromString(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// RoundTND rounds a full-precision intermediate to a reportable TND
// amount: 3 fractional digits, half away from zero.
func RoundTND(d decimal.Decimal) decimal.Decimal {
	return d.Round(Scale)
}

// LineNet computes quantity * unitPrice at full precision, then rounds
// to a reportable amount.
func LineNet(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(Scale)
}

// TaxAmount computes amount * (ratePercent/100).
// The multiplication and division happen at full precision; rounding is
// applied only on the reportable result.
func TaxAmount(amount decimal.Decimal, ratePercent int) decimal.Decimal {
	if ratePercent == 0 {
		return Zero
	}
	rate := decimal.NewFromInt(int64(ratePercent))
	hundred := decimal.NewFromInt(100)
	return amount.Mul(rate).Div(hundred).Round(Scale)
}

// Sum sums a slice of decimals without intermediate rounding
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// IsPositive returns true if decimal is greater than zero
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(Zero)
}

// IsNonNegative returns true if decimal is >= zero
func IsNonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Zero)
}

// Format renders an amount with exactly three fractional digits, the
// form TEIF monetary elements carry.
func Format(d decimal.Decimal) string {
	return d.Round(Scale).StringFixed(Scale)
}
