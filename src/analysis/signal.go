package analysis

import "pair-analytics/src/models"

// DefaultEntryZScore is the absolute z-score that opens a position.
const DefaultEntryZScore = 2.0

// ClassifySignal reads the newest defined z-score against the entry
// threshold: above it the spread is rich (short it), below its negative the
// spread is cheap (buy it).
func ClassifySignal(zscore, correlation models.MRollingSeries, spread []float64, threshold float64) models.MSignal {
	if threshold <= 0 {
		threshold = DefaultEntryZScore
	}
	sig := models.MSignal{Direction: models.SignalNone, Threshold: threshold}

	if n := len(spread); n > 0 {
		s := spread[n-1]
		sig.Spread = &s
	}
	if r, ok := correlation.Last(); ok {
		sig.Correlation = &r
	}

	z, ok := zscore.Last()
	if !ok {
		return sig
	}
	sig.ZScore = &z

	switch {
	case z > threshold:
		sig.Direction = models.SignalShortSpread
	case z < -threshold:
		sig.Direction = models.SignalLongSpread
	default:
		sig.Direction = models.SignalNeutral
	}
	return sig
}
