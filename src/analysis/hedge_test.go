package analysis

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pair-analytics/src/helpers"
	"pair-analytics/src/models"
)

func series(xs, ys []float64) models.MAlignedSeries {
	out := make(models.MAlignedSeries, len(xs))
	for i := range xs {
		out[i] = models.MAlignedPoint{Timestamp: epoch.Add(time.Duration(i) * time.Minute), X: xs[i], Y: ys[i]}
	}
	return out
}

func TestHedgeRatioAndSpreadOnExactRelation(t *testing.T) {
	const c = 7.25
	xs := make([]float64, 40)
	ys := make([]float64, 40)
	for i := range xs {
		xs[i] = 20000 + float64(i*i%17)*3.5
		ys[i] = 2*xs[i] + c
	}
	s := series(xs, ys)

	ratio, err := EstimateHedgeRatio(s)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, ratio.Beta, 1e-9)
	assert.InDelta(t, c, ratio.Alpha, 1e-6)
	assert.Equal(t, 40, ratio.Observations)

	spread := ComputeSpread(s, ratio)
	require.Len(t, spread, len(s))
	for _, v := range spread {
		assert.InDelta(t, 0, v, 1e-6)
	}
}

func TestHedgeRatioErrors(t *testing.T) {
	_, err := EstimateHedgeRatio(series([]float64{1}, []float64{2}))
	assert.True(t, errors.Is(err, helpers.ErrInsufficientData))

	_, err = EstimateHedgeRatio(series([]float64{3, 3, 3}, []float64{1, 2, 3}))
	assert.True(t, errors.Is(err, helpers.ErrDegenerateRegression))
}
