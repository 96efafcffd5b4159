package core

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Response-surface coefficients for a single series with a constant term
// (MacKinnon 1994 for p-values, MacKinnon 2010 for critical values).
const (
	tauMaxStat  = 2.74
	tauMinStat  = -18.86
	tauStarStat = -1.61
)

var (
	tauSmallP = []float64{2.1659, 1.4412, 0.038269}
	tauLargeP = []float64{1.7339, 0.93202, -0.12745, -0.010368}

	tauCritical = []struct {
		level string
		coef  [4]float64
	}{
		{"1%", [4]float64{-3.43035, -6.5393, -16.786, -79.433}},
		{"5%", [4]float64{-2.86154, -2.8903, -4.234, -40.040}},
		{"10%", [4]float64{-2.56677, -1.5384, -2.809, 0}},
	}
)

// -----------------------------------------------------------------------------

// MacKinnonP returns the approximate p-value of an ADF t statistic.
func MacKinnonP(stat float64) float64 {
	switch {
	case math.IsNaN(stat):
		return math.NaN()
	case stat > tauMaxStat:
		return 1
	case stat < tauMinStat:
		return 0
	}

	coef := tauLargeP
	if stat <= tauStarStat {
		coef = tauSmallP
	}
	return distuv.UnitNormal.CDF(polyval(coef, stat))
}

// -----------------------------------------------------------------------------

// MacKinnonCritical returns the 1%, 5% and 10% critical values for a
// regression on nobs observations.
func MacKinnonCritical(nobs int) map[string]float64 {
	inv := 1 / float64(nobs)
	out := make(map[string]float64, len(tauCritical))
	for _, row := range tauCritical {
		out[row.level] = row.coef[0] + inv*(row.coef[1]+inv*(row.coef[2]+inv*row.coef[3]))
	}
	return out
}

// -----------------------------------------------------------------------------

// polyval evaluates c[0] + c[1]*x + c[2]*x^2 + ...
func polyval(c []float64, x float64) float64 {
	out := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		out = out*x + c[i]
	}
	return out
}
