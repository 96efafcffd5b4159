package analysis

import (
	"math"

	"pair-analytics/src/analysis/core"
	"pair-analytics/src/models"
)

// CheckStationarity runs the augmented Dickey-Fuller test (constant, AIC lag
// search up to maxLag, 0 for the Schwert bound) on the defined values of a
// spread.
func CheckStationarity(spread []float64, minObs, maxLag int) (*models.MStationarityResult, error) {
	values := make([]float64, 0, len(spread))
	for _, v := range spread {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}

	res, err := core.ADF(values, core.ADFOptions{MaxLag: maxLag, MinObservations: minObs})
	if err != nil {
		return nil, err
	}

	return &models.MStationarityResult{
		Statistic:      res.Statistic,
		PValue:         res.PValue,
		UsedLag:        res.UsedLag,
		NObs:           res.NObs,
		CriticalValues: res.CriticalValues,
		ICBest:         res.ICBest,
	}, nil
}
