package core

import "math"

// -----------------------------------------------------------------------------

// CalculateZScore calculates the standard score. ok is false when std is zero
// or not finite.
func CalculateZScore(value, mean, std float64) (float64, bool) {
	if std == 0 || math.IsNaN(std) || math.IsInf(std, 0) {
		return math.NaN(), false
	}
	return (value - mean) / std, true
}

// -----------------------------------------------------------------------------

func clampUnit(r float64) float64 {
	if r > 1 {
		return 1
	}
	if r < -1 {
		return -1
	}
	return r
}
