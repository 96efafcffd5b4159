package analysis

import "pair-analytics/src/models"

// Align inner-joins two bar sequences on bucket start and keeps the closes.
// Bars must be in increasing bucket order, as Resample produces them.
func Align(barsX, barsY []models.MBar) models.MAlignedSeries {
	out := make(models.MAlignedSeries, 0, min(len(barsX), len(barsY)))

	i, j := 0, 0
	for i < len(barsX) && j < len(barsY) {
		tx := barsX[i].BucketStart
		ty := barsY[j].BucketStart
		switch {
		case tx.Before(ty):
			i++
		case ty.Before(tx):
			j++
		default:
			out = append(out, models.MAlignedPoint{
				Timestamp: tx,
				X:         barsX[i].Close,
				Y:         barsY[j].Close,
			})
			i++
			j++
		}
	}

	return out
}
