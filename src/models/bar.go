package models

import "time"

// MBar is an OHLCV candle for one non-empty time bucket.
type MBar struct {
	BucketStart time.Time `json:"bucket_start"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	Trades      int       `json:"trades"`
}
