package analysis

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"pair-analytics/src/models"
)

// CSVHeader is the column order of WriteCSV.
var CSVHeader = []string{"timestamp", "price_x", "price_y", "spread", "zscore"}

// -----------------------------------------------------------------------------

// WriteCSV writes the aligned prices, spread and z-score of a result. Rows
// whose z-score is undefined are left out.
func WriteCSV(w io.Writer, result *models.MPairAnalytics) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}

	for i, p := range result.Series {
		z, ok := result.ZScore.At(i)
		if !ok || i >= len(result.Spread) {
			continue
		}
		record := []string{
			p.Timestamp.UTC().Format(time.RFC3339Nano),
			formatFloat(p.X),
			formatFloat(p.Y),
			formatFloat(result.Spread[i]),
			formatFloat(z),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
