package models

// MHedgeRatio defines y ~ Alpha + Beta*x.
type MHedgeRatio struct {
	Alpha        float64 `json:"alpha"`
	Beta         float64 `json:"beta"`
	RSquared     float64 `json:"r_squared"`
	Observations int     `json:"observations"`
}
