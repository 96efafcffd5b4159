package core

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"pair-analytics/src/helpers"
)

// rankTolerance is the smallest |R[j][j]| accepted relative to the largest
// diagonal entry of the QR factor.
const rankTolerance = 1e-10

// LineFit is a univariate least-squares fit y = Alpha + Beta*x.
type LineFit struct {
	Alpha    float64
	Beta     float64
	RSquared float64
	N        int
}

// -----------------------------------------------------------------------------

// FitLine fits y on x with an intercept. A constant regressor has no slope
// and is rejected before fitting.
func FitLine(x, y []float64) (LineFit, error) {
	if len(x) != len(y) {
		return LineFit{}, helpers.NewError(helpers.KindInvalidParameter, "regression",
			"length mismatch: %d x values, %d y values", len(x), len(y))
	}
	n := len(x)
	if n < 2 {
		return LineFit{}, helpers.NewError(helpers.KindInsufficientData, "regression",
			"need at least 2 observations, have %d", n)
	}
	if isConstant(x) {
		return LineFit{}, helpers.NewError(helpers.KindDegenerateRegression, "regression",
			"regressor is constant at %g", x[0])
	}

	alpha, beta := stat.LinearRegression(x, y, nil, false)
	if math.IsNaN(alpha) || math.IsNaN(beta) {
		return LineFit{}, helpers.NewError(helpers.KindDegenerateRegression, "regression",
			"regressor has zero variance")
	}

	fit := LineFit{Alpha: alpha, Beta: beta, N: n, RSquared: 1}
	if !isConstant(y) {
		r2 := stat.RSquared(x, y, nil, alpha, beta)
		fit.RSquared = math.Max(0, math.Min(1, r2))
	}
	return fit, nil
}

func isConstant(v []float64) bool {
	for _, x := range v[1:] {
		if x != v[0] {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------

// OLSResult is a multivariate least-squares fit.
type OLSResult struct {
	Params []float64
	StdErr []float64
	SSR    float64
	NObs   int
	LogLik float64
	AIC    float64
}

// TValue returns the t statistic of coefficient j.
func (r *OLSResult) TValue(j int) float64 {
	return r.Params[j] / r.StdErr[j]
}

// -----------------------------------------------------------------------------

// OLS regresses y on the columns of X using a QR factorisation of X.
// Standard errors come from (R'R)^-1 = R^-1 R^-T.
func OLS(y []float64, X *mat.Dense) (*OLSResult, error) {
	n, k := X.Dims()
	if n != len(y) {
		return nil, helpers.NewError(helpers.KindInvalidParameter, "ols",
			"design has %d rows, response has %d", n, len(y))
	}
	if n <= k {
		return nil, helpers.NewError(helpers.KindInsufficientData, "ols",
			"%d observations cannot fit %d parameters", n, k)
	}

	var qr mat.QR
	qr.Factorize(X)

	var r mat.Dense
	qr.RTo(&r)
	maxDiag := 0.0
	for j := 0; j < k; j++ {
		maxDiag = math.Max(maxDiag, math.Abs(r.At(j, j)))
	}
	for j := 0; j < k; j++ {
		if math.Abs(r.At(j, j)) <= rankTolerance*maxDiag {
			return nil, helpers.NewError(helpers.KindDegenerateRegression, "ols",
				"design matrix is not full rank (column %d)", j)
		}
	}

	var beta mat.VecDense
	if err := qr.SolveVecTo(&beta, false, mat.NewVecDense(n, y)); err != nil {
		return nil, helpers.WrapError(helpers.KindDegenerateRegression, "ols", err, "solve least squares")
	}

	var fitted mat.VecDense
	fitted.MulVec(X, &beta)
	ssr := 0.0
	for i := 0; i < n; i++ {
		e := y[i] - fitted.AtVec(i)
		ssr += e * e
	}
	if ssr == 0 {
		return nil, helpers.NewError(helpers.KindDegenerateRegression, "ols",
			"residuals are identically zero")
	}

	upper := mat.NewTriDense(k, mat.Upper, nil)
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			upper.SetTri(i, j, r.At(i, j))
		}
	}
	var rinv mat.TriDense
	if err := rinv.InverseTri(upper); err != nil {
		return nil, helpers.WrapError(helpers.KindDegenerateRegression, "ols", err, "invert R")
	}

	sigma2 := ssr / float64(n-k)
	res := &OLSResult{
		Params: make([]float64, k),
		StdErr: make([]float64, k),
		SSR:    ssr,
		NObs:   n,
	}
	for i := 0; i < k; i++ {
		res.Params[i] = beta.AtVec(i)
		v := 0.0
		for j := i; j < k; j++ {
			e := rinv.At(i, j)
			v += e * e
		}
		res.StdErr[i] = math.Sqrt(sigma2 * v)
	}

	nf := float64(n)
	res.LogLik = -nf / 2 * (math.Log(2*math.Pi) + math.Log(ssr/nf) + 1)
	res.AIC = -2*res.LogLik + 2*float64(k)
	return res, nil
}
