package util

import (
	"strings"

	"github.com/shopspring/decimal"
)

func DecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}

	return decimal.NewFromString(s)
}

// FormatFixed renders v with exactly places fractional digits, rounding half
// away from zero.
func FormatFixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}
