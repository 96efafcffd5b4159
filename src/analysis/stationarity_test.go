package analysis

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pair-analytics/src/helpers"
	"pair-analytics/src/models"
)

func TestCheckStationarityMeanRevertingSpread(t *testing.T) {
	rng := rand.New(rand.NewSource(21))
	spread := make([]float64, 300)
	prev := 0.0
	for i := range spread {
		prev = 0.3*prev + rng.NormFloat64()
		spread[i] = prev
	}

	res, err := CheckStationarity(spread, 0, 0)
	require.NoError(t, err)
	assert.Less(t, res.PValue, 0.05)
	assert.Less(t, res.Statistic, res.CriticalValues[models.CriticalLevel5])
	assert.Len(t, res.CriticalValues, 3)
}

func TestCheckStationarityStripsUndefinedValues(t *testing.T) {
	rng := rand.New(rand.NewSource(22))
	spread := make([]float64, 60)
	for i := range spread {
		spread[i] = rng.NormFloat64()
	}
	padded := append([]float64{math.NaN(), math.NaN(), math.NaN()}, spread...)

	want, err := CheckStationarity(spread, 0, 0)
	require.NoError(t, err)
	got, err := CheckStationarity(padded, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCheckStationarityInsufficientData(t *testing.T) {
	short := []float64{math.NaN(), 1, 2, 1, 3, 2, 4, 3, 2, 1, 2, 3, 2, 1, 0, 1, 2, 1, 2, 1}
	_, err := CheckStationarity(short, 0, 0)
	assert.True(t, errors.Is(err, helpers.ErrInsufficientData))
}

func TestCheckStationaritySmallScaleSpread(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	noise := make([]float64, 300)
	for i := range noise {
		noise[i] = rng.NormFloat64()
	}
	ref, err := CheckStationarity(noise, 0, 0)
	require.NoError(t, err)

	for _, scale := range []float64{1e-8, 1e-6, 1e8} {
		spread := make([]float64, len(noise))
		for i, v := range noise {
			spread[i] = scale * v
		}
		res, err := CheckStationarity(spread, 0, 0)
		require.NoError(t, err, "scale %g", scale)
		assert.InEpsilon(t, ref.Statistic, res.Statistic, 1e-6, "scale %g", scale)
		assert.Less(t, res.PValue, 0.01)
	}
}

func TestCheckStationarityCapsLagSearch(t *testing.T) {
	rng := rand.New(rand.NewSource(23))
	spread := make([]float64, 200)
	for i := range spread {
		spread[i] = rng.NormFloat64()
	}

	res, err := CheckStationarity(spread, 0, 1)
	require.NoError(t, err)
	assert.LessOrEqual(t, res.UsedLag, 1)
}
