package models

// Critical value labels reported by the stationarity test.
const (
	CriticalLevel1  = "1%"
	CriticalLevel5  = "5%"
	CriticalLevel10 = "10%"
)

// MStationarityResult is the outcome of an augmented Dickey-Fuller test.
type MStationarityResult struct {
	Statistic      float64            `json:"adf_stat"`
	PValue         float64            `json:"p_value"`
	UsedLag        int                `json:"used_lag"`
	NObs           int                `json:"n_obs"`
	CriticalValues map[string]float64 `json:"critical_values"`
	ICBest         float64            `json:"ic_best"`
}
