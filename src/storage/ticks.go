package storage

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"pair-analytics/src/helpers"
	"pair-analytics/src/models"
)

// tickRow is the persisted form of a trade. Timestamps are epoch milliseconds.
type tickRow struct {
	ID        int64   `db:"id"`
	Timestamp int64   `db:"timestamp"`
	Symbol    string  `db:"symbol"`
	Price     float64 `db:"price"`
	Quantity  float64 `db:"quantity"`
}

func (r tickRow) toTick() models.MTick {
	return models.MTick{
		ID:        r.ID,
		Symbol:    r.Symbol,
		Timestamp: time.UnixMilli(r.Timestamp).UTC(),
		Price:     r.Price,
		Quantity:  r.Quantity,
	}
}

// -----------------------------------------------------------------------------

// queryRange converts an open-ended query range into epoch milliseconds.
func queryRange(q models.MTickQuery) (int64, int64) {
	from, to := int64(math.MinInt64), int64(math.MaxInt64)
	if !q.From.IsZero() {
		from = q.From.UnixMilli()
	}
	if !q.To.IsZero() {
		to = q.To.UnixMilli()
	}
	return from, to
}

// -----------------------------------------------------------------------------

// selectTicks runs one range query per symbol inside tx, so every symbol is
// read from the same snapshot.
func selectTicks(ctx context.Context, tx *sqlx.Tx, query string, q models.MTickQuery) (map[string][]models.MTick, error) {
	from, to := queryRange(q)
	out := make(map[string][]models.MTick, len(q.Symbols))

	for _, symbol := range q.Symbols {
		var rows []tickRow
		if err := tx.SelectContext(ctx, &rows, query, symbol, from, to); err != nil {
			return nil, helpers.WrapError(helpers.KindStoreUnavailable, "fetch", err, "query ticks for %s", symbol)
		}

		ticks := make([]models.MTick, len(rows))
		for i, r := range rows {
			ticks[i] = r.toTick()
		}
		out[symbol] = ticks
	}

	return out, nil
}

// -----------------------------------------------------------------------------

// sortTicks orders ticks by timestamp, keeping insertion order for ties.
func sortTicks(ticks []models.MTick) {
	sort.SliceStable(ticks, func(i, j int) bool {
		return ticks[i].Timestamp.Before(ticks[j].Timestamp)
	})
}

func unavailable(err error, format string, args ...interface{}) error {
	return helpers.WrapError(helpers.KindStoreUnavailable, "store", err, format, args...)
}
