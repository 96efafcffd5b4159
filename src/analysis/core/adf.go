package core

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"pair-analytics/src/helpers"
)

// DefaultMinADFObservations is the shortest series the ADF test accepts.
const DefaultMinADFObservations = 20

// ADFOptions controls the augmented Dickey-Fuller test.
type ADFOptions struct {
	// MaxLag caps the AIC lag search. Zero or negative selects
	// ceil(12*(n/100)^(1/4)) bounded by n/2-2.
	MaxLag int
	// MinObservations defaults to DefaultMinADFObservations.
	MinObservations int
}

// ADFResult is the outcome of an augmented Dickey-Fuller test with a constant.
type ADFResult struct {
	Statistic      float64
	PValue         float64
	UsedLag        int
	NObs           int
	CriticalValues map[string]float64
	ICBest         float64
}

// -----------------------------------------------------------------------------

// ADF tests x for a unit root. The lag order is chosen by minimum AIC over a
// common sample, ties resolved towards fewer lags, then the regression is
// refit on the largest sample the chosen order allows. The series is
// standardised first; the statistic does not depend on location or scale.
func ADF(x []float64, opts ADFOptions) (ADFResult, error) {
	const stage = "stationarity"

	minObs := opts.MinObservations
	if minObs <= 0 {
		minObs = DefaultMinADFObservations
	}
	nobs := len(x)
	if nobs < minObs {
		return ADFResult{}, helpers.NewError(helpers.KindInsufficientData, stage,
			"need at least %d observations, have %d", minObs, nobs)
	}

	mean, sd := stat.MeanStdDev(x, nil)
	if sd == 0 || math.IsNaN(sd) || math.IsInf(sd, 0) {
		return ADFResult{}, helpers.NewError(helpers.KindDegenerateRegression, stage,
			"series has no variation")
	}
	z := make([]float64, nobs)
	for i, v := range x {
		z[i] = (v - mean) / sd
	}

	maxLag := opts.MaxLag
	if maxLag <= 0 {
		maxLag = int(math.Ceil(12 * math.Pow(float64(nobs)/100, 0.25)))
		// one deterministic term (the constant)
		if bound := nobs/2 - 2; bound < maxLag {
			maxLag = bound
		}
		if maxLag < 0 {
			return ADFResult{}, helpers.NewError(helpers.KindInsufficientData, stage,
				"series of %d observations is too short for any lag", nobs)
		}
	} else if maxLag > nobs/2-2 {
		return ADFResult{}, helpers.NewError(helpers.KindInvalidParameter, stage,
			"max lag %d too large for %d observations", maxLag, nobs)
	}

	diff := make([]float64, nobs-1)
	for i := range diff {
		diff[i] = z[i+1] - z[i]
	}

	usedLag := 0
	y, design := adfDesign(z, diff, maxLag, maxLag)
	_, cols := design.Dims()
	best := math.Inf(1)
	for k := 2; k <= cols; k++ {
		res, err := OLS(y, design.Slice(0, len(y), 0, k).(*mat.Dense))
		if err != nil {
			return ADFResult{}, err
		}
		if res.AIC < best {
			best = res.AIC
			usedLag = k - 2
		}
	}
	// AIC of the unscaled series: SSR scales by sd^2.
	icBest := best + 2*float64(len(y))*math.Log(sd)

	y, design = adfDesign(z, diff, usedLag, usedLag)
	res, err := OLS(y, design)
	if err != nil {
		return ADFResult{}, err
	}

	tstat := res.TValue(1)
	return ADFResult{
		Statistic:      tstat,
		PValue:         MacKinnonP(tstat),
		UsedLag:        usedLag,
		NObs:           res.NObs,
		CriticalValues: MacKinnonCritical(res.NObs),
		ICBest:         icBest,
	}, nil
}

// -----------------------------------------------------------------------------

// adfDesign builds the regression of diff[t] on [1, x[t], diff[t-1..t-lags]]
// for t = trim .. len(diff)-1.
func adfDesign(x, diff []float64, trim, lags int) ([]float64, *mat.Dense) {
	rows := len(diff) - trim
	cols := 2 + lags
	y := make([]float64, rows)
	data := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		t := trim + r
		y[r] = diff[t]
		data = append(data, 1, x[t])
		for j := 1; j <= lags; j++ {
			data = append(data, diff[t-j])
		}
	}
	return y, mat.NewDense(rows, cols, data)
}
