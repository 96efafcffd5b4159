package analysis

import (
	"pair-analytics/src/analysis/core"
	"pair-analytics/src/models"
)

// EstimateHedgeRatio regresses the y closes on the x closes with an intercept.
func EstimateHedgeRatio(series models.MAlignedSeries) (models.MHedgeRatio, error) {
	fit, err := core.FitLine(series.Xs(), series.Ys())
	if err != nil {
		return models.MHedgeRatio{}, err
	}
	return models.MHedgeRatio{
		Alpha:        fit.Alpha,
		Beta:         fit.Beta,
		RSquared:     fit.RSquared,
		Observations: fit.N,
	}, nil
}

// -----------------------------------------------------------------------------

// ComputeSpread returns y - (alpha + beta*x) for every aligned row.
func ComputeSpread(series models.MAlignedSeries, ratio models.MHedgeRatio) []float64 {
	spread := make([]float64, len(series))
	for i, p := range series {
		spread[i] = p.Y - (ratio.Alpha + ratio.Beta*p.X)
	}
	return spread
}
