package analysis

import (
	"pair-analytics/src/analysis/core"
	"pair-analytics/src/helpers"
	"pair-analytics/src/models"
)

// MinRollingWindow is the smallest window with a defined sample deviation.
const MinRollingWindow = 2

func checkWindow(window int) error {
	if window < MinRollingWindow {
		return helpers.NewError(helpers.KindInvalidParameter, "rolling",
			"window must be at least %d, got %d", MinRollingWindow, window)
	}
	return nil
}

// -----------------------------------------------------------------------------

// RollingZScore standardises each value against the trailing window ending
// at it. The first window-1 slots and zero-deviation windows are undefined.
func RollingZScore(values []float64, window int) (models.MRollingSeries, error) {
	if err := checkWindow(window); err != nil {
		return models.MRollingSeries{}, err
	}

	out := models.NewRollingSeries(len(values), window)
	w := core.NewRollingMoments(window)
	for i, v := range values {
		w.Push(v)
		if !w.Full() {
			continue
		}
		if z, ok := core.CalculateZScore(v, w.Mean(), w.Std()); ok {
			out.Set(i, z)
		}
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// RollingCorrelation is the trailing-window Pearson correlation of x and y.
func RollingCorrelation(x, y []float64, window int) (models.MRollingSeries, error) {
	if err := checkWindow(window); err != nil {
		return models.MRollingSeries{}, err
	}
	if len(x) != len(y) {
		return models.MRollingSeries{}, helpers.NewError(helpers.KindInvalidParameter, "rolling",
			"series lengths differ: %d and %d", len(x), len(y))
	}

	out := models.NewRollingSeries(len(x), window)
	w := core.NewRollingCoMoments(window)
	for i := range x {
		w.Push(x[i], y[i])
		if !w.Full() {
			continue
		}
		if r, ok := w.Correlation(); ok {
			out.Set(i, r)
		}
	}
	return out, nil
}
