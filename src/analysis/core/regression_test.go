package core

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"pair-analytics/src/helpers"
)

func TestFitLineRecoversExactRelation(t *testing.T) {
	x := make([]float64, 50)
	y := make([]float64, 50)
	for i := range x {
		x[i] = float64(i) * 0.37
		y[i] = 3 + 2*x[i]
	}

	fit, err := FitLine(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, fit.Beta, 1e-9)
	assert.InDelta(t, 3.0, fit.Alpha, 1e-9)
	assert.InDelta(t, 1.0, fit.RSquared, 1e-9)
	assert.Equal(t, 50, fit.N)
}

func TestFitLinePairScenario(t *testing.T) {
	fit, err := FitLine([]float64{100, 101, 102, 103}, []float64{50, 50.5, 51, 51.5})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, fit.Beta, 1e-9)
	assert.InDelta(t, 0.0, fit.Alpha, 1e-7)
}

func TestFitLineConstantResponse(t *testing.T) {
	fit, err := FitLine([]float64{1, 2, 3, 4}, []float64{7, 7, 7, 7})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, fit.Beta, 1e-12)
	assert.InDelta(t, 7.0, fit.Alpha, 1e-12)
	assert.Equal(t, 1.0, fit.RSquared)
}

func TestFitLineErrors(t *testing.T) {
	tests := []struct {
		name string
		x, y []float64
		want error
	}{
		{"single point", []float64{1}, []float64{2}, helpers.ErrInsufficientData},
		{"empty", nil, nil, helpers.ErrInsufficientData},
		{"constant regressor", []float64{5, 5, 5}, []float64{1, 2, 3}, helpers.ErrDegenerateRegression},
		{"length mismatch", []float64{1, 2}, []float64{1}, helpers.ErrInvalidParameter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FitLine(tt.x, tt.y)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestOLSRecoversCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 400
	data := make([]float64, 0, n*3)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a := rng.NormFloat64()
		b := rng.NormFloat64()
		data = append(data, 1, a, b)
		y[i] = 1.5 - 0.75*a + 2*b + 0.01*rng.NormFloat64()
	}

	res, err := OLS(y, mat.NewDense(n, 3, data))
	require.NoError(t, err)
	assert.InDelta(t, 1.5, res.Params[0], 0.01)
	assert.InDelta(t, -0.75, res.Params[1], 0.01)
	assert.InDelta(t, 2.0, res.Params[2], 0.01)
	assert.Equal(t, n, res.NObs)
	assert.Greater(t, res.SSR, 0.0)
	for _, se := range res.StdErr {
		assert.Greater(t, se, 0.0)
	}
}

func TestOLSSmallScaleRegressor(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	n := 300
	data := make([]float64, 0, n*2)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a := 1e-7 * rng.NormFloat64()
		data = append(data, 1, a)
		y[i] = 0.5 + 4e6*a + 0.01*rng.NormFloat64()
	}

	res, err := OLS(y, mat.NewDense(n, 2, data))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, res.Params[0], 0.01)
	assert.InEpsilon(t, 4e6, res.Params[1], 0.01)
}

func TestOLSRejectsCollinearDesign(t *testing.T) {
	n := 10
	data := make([]float64, 0, n*3)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		v := float64(i)
		data = append(data, 1, v, 2*v)
		y[i] = float64(i * i)
	}

	_, err := OLS(y, mat.NewDense(n, 3, data))
	assert.True(t, errors.Is(err, helpers.ErrDegenerateRegression), "got %v", err)
}

func TestOLSTooFewRows(t *testing.T) {
	_, err := OLS([]float64{1, 2}, mat.NewDense(2, 2, []float64{1, 0, 1, 1}))
	assert.True(t, errors.Is(err, helpers.ErrInsufficientData))
}
