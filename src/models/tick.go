package models

import "time"

// MTick is a single trade print for one symbol.
type MTick struct {
	ID        int64     `json:"id,omitempty"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Price     float64   `json:"price"`
	Quantity  float64   `json:"quantity"`
}

// -----------------------------------------------------------------------------

// MTickQuery selects the ticks of one or more symbols inside [From, To).
// A zero From or To leaves that side of the range open.
type MTickQuery struct {
	Symbols []string
	From    time.Time
	To      time.Time
}
