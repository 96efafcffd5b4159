package core

// OHLCV summarises the trades of one bucket.
type OHLCV struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// -----------------------------------------------------------------------------

// ComputeOHLCV calculates OHLCV from price/volume arrays in trade order.
// ok is false for an empty bucket.
func ComputeOHLCV(prices []float64, volumes []float64) (OHLCV, bool) {
	if len(prices) == 0 {
		return OHLCV{}, false
	}

	out := OHLCV{
		Open:  prices[0],
		High:  prices[0],
		Low:   prices[0],
		Close: prices[len(prices)-1],
	}

	for i, p := range prices {
		if p > out.High {
			out.High = p
		}
		if p < out.Low {
			out.Low = p
		}
		if i < len(volumes) {
			out.Volume += volumes[i]
		}
	}

	return out, true
}
