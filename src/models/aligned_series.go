package models

import "time"

// MAlignedPoint is one timestamp present in both bar sequences.
type MAlignedPoint struct {
	Timestamp time.Time `json:"timestamp"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
}

// MAlignedSeries is ordered by strictly increasing timestamp.
type MAlignedSeries []MAlignedPoint

// -----------------------------------------------------------------------------

// Xs returns a copy of the x closes.
func (s MAlignedSeries) Xs() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.X
	}
	return out
}

// -----------------------------------------------------------------------------

// Ys returns a copy of the y closes.
func (s MAlignedSeries) Ys() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Y
	}
	return out
}
