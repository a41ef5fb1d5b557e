package payroll

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds n to two decimal places, half away from zero.
// Non-finite input yields 0.
func Round2(n float64) float64 {
	return round2(toDecimal(n)).InexactFloat64()
}

// EffectiveWeight resolves the weight used for payable computation.
func EffectiveWeight(original float64, edited *float64) float64 {
	return effectiveWeight(original, edited).InexactFloat64()
}

func effectiveWeight(original float64, edited *float64) decimal.Decimal {
	w := original
	if edited != nil {
		w = *edited
	}

	d := round2(toDecimal(w))
	if d.IsNegative() {
		return decimal.Zero
	}

	return d
}

func toDecimal(n float64) decimal.Decimal {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return decimal.Zero
	}

	return decimal.NewFromFloat(n)
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ValidWeight reports whether kg can be used as an edited weight.
func ValidWeight(kg float64) bool {
	return !math.IsNaN(kg) && !math.IsInf(kg, 0) && kg >= 0
}
