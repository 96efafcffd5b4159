package models

import "time"

// Signal directions derived from the latest z-score.
const (
	SignalShortSpread = "SHORT_SPREAD"
	SignalLongSpread  = "LONG_SPREAD"
	SignalNeutral     = "NEUTRAL"
	SignalNone        = "NO_SIGNAL"
)

// MSignal summarises the newest defined values of the pair.
type MSignal struct {
	Direction   string   `json:"direction"`
	Threshold   float64  `json:"threshold"`
	ZScore      *float64 `json:"zscore"`
	Spread      *float64 `json:"spread"`
	Correlation *float64 `json:"correlation"`
}

// -----------------------------------------------------------------------------

// MPairAnalytics is the bundle returned by one pipeline run.
type MPairAnalytics struct {
	RunID        string               `json:"run_id"`
	SymbolX      string               `json:"symbol_x"`
	SymbolY      string               `json:"symbol_y"`
	Timeframe    string               `json:"timeframe"`
	BucketWidth  time.Duration        `json:"bucket_width_ns"`
	BarsX        int                  `json:"bars_x"`
	BarsY        int                  `json:"bars_y"`
	Series       MAlignedSeries       `json:"prices"`
	Hedge        MHedgeRatio          `json:"hedge"`
	Spread       []float64            `json:"spread"`
	ZScore       MRollingSeries       `json:"zscore"`
	Correlation  MRollingSeries       `json:"correlation"`
	Stationarity *MStationarityResult `json:"stationarity,omitempty"`
	Signal       MSignal              `json:"signal"`
	GeneratedAt  time.Time            `json:"generated_at"`
}
