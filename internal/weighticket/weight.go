package weighticket

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseWeight reads a weight in kilograms written with either decimal
// convention: "1.234,56", "1,234.56", "1234,5" or "1234.5".
// A lone comma is a decimal separator, as on the scale-house printouts.
func parseWeight(s string) (decimal.Decimal, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimSuffix(strings.TrimSuffix(clean, "kg"), "KG")
	clean = strings.ReplaceAll(strings.TrimSpace(clean), " ", "")

	lastComma := strings.LastIndex(clean, ",")
	lastDot := strings.LastIndex(clean, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	case lastComma >= 0 && lastDot >= 0:
		clean = strings.ReplaceAll(clean, ",", "")
	case lastComma >= 0:
		clean = strings.ReplaceAll(clean, ",", ".")
	case strings.Count(clean, ".") > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, err
	}

	return d.Round(2), nil
}
