package analysis

import (
	"sort"
	"time"

	"pair-analytics/src/analysis/core"
	"pair-analytics/src/helpers"
	"pair-analytics/src/models"
)

// Bucket groups the indices of the ticks that fall into one time bucket.
type Bucket struct {
	Indices   []int
	StartTime int64
	EndTime   int64
}

// TimeSeriesResampler converts ticks into epoch-anchored OHLCV bars.
type TimeSeriesResampler struct{}

// -----------------------------------------------------------------------------

// ResampleIndices groups sorted timestamps (unix nanoseconds) into
// left-closed buckets of width nanoseconds. Only occupied buckets are
// returned.
func (r *TimeSeriesResampler) ResampleIndices(timestamps []int64, width int64) []Bucket {
	var results []Bucket

	for i, ts := range timestamps {
		start, end := CalculateWindowBoundaries(ts, width)
		if n := len(results); n > 0 && results[n-1].StartTime == start {
			results[n-1].Indices = append(results[n-1].Indices, i)
			continue
		}
		results = append(results, Bucket{
			Indices:   []int{i},
			StartTime: start,
			EndTime:   end,
		})
	}

	return results
}

// -----------------------------------------------------------------------------

// Resample aggregates one symbol's ticks into bars. Ticks out of timestamp
// order are stably sorted first so equal timestamps keep arrival order.
func (r *TimeSeriesResampler) Resample(ticks []models.MTick, width time.Duration) ([]models.MBar, error) {
	if width <= 0 {
		return nil, helpers.NewError(helpers.KindInvalidParameter, "resample",
			"bucket width must be positive, got %s", width)
	}
	if len(ticks) == 0 {
		return []models.MBar{}, nil
	}

	ordered := ticks
	if !sort.SliceIsSorted(ticks, func(i, j int) bool {
		return ticks[i].Timestamp.Before(ticks[j].Timestamp)
	}) {
		ordered = make([]models.MTick, len(ticks))
		copy(ordered, ticks)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Timestamp.Before(ordered[j].Timestamp)
		})
	}

	timestamps := make([]int64, len(ordered))
	for i, t := range ordered {
		timestamps[i] = t.Timestamp.UnixNano()
	}

	buckets := r.ResampleIndices(timestamps, int64(width))
	bars := make([]models.MBar, 0, len(buckets))

	for _, b := range buckets {
		prices := make([]float64, len(b.Indices))
		volumes := make([]float64, len(b.Indices))
		for i, idx := range b.Indices {
			prices[i] = ordered[idx].Price
			volumes[i] = ordered[idx].Quantity
		}

		ohlcv, ok := core.ComputeOHLCV(prices, volumes)
		if !ok {
			continue
		}
		bars = append(bars, models.MBar{
			BucketStart: time.Unix(0, b.StartTime).UTC(),
			Open:        ohlcv.Open,
			High:        ohlcv.High,
			Low:         ohlcv.Low,
			Close:       ohlcv.Close,
			Volume:      ohlcv.Volume,
			Trades:      len(b.Indices),
		})
	}

	return bars, nil
}

// -----------------------------------------------------------------------------

// CalculateWindowBoundaries returns the [start, end) bucket holding ts.
// Buckets are anchored at the unix epoch, including for instants before it.
func CalculateWindowBoundaries(ts int64, window int64) (int64, int64) {
	idx := ts / window
	if ts%window != 0 && ts < 0 {
		idx--
	}
	start := idx * window
	return start, start + window
}
