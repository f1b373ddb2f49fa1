package analysis

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds half away from zero to 2 decimals. NaN and Inf become 0.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// pct returns part/whole*100, or 0 when whole is 0
func pct(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return part / whole * 100
}
