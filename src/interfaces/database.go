package interfaces

import (
	"context"
	"time"

	"pair-analytics/src/models"
)

// -----------------------------------------------------------------------------
// ITickStore defines the contract for trade persistence.
// -----------------------------------------------------------------------------

type ITickStore interface {

	// -----------------------------------------------------------------------------

	// Initialize creates the schema if it is missing. Existing data is kept.
	Initialize(ctx context.Context) error

	// -----------------------------------------------------------------------------

	// SaveTicksBulk inserts a batch of trades.
	SaveTicksBulk(ctx context.Context, ticks []models.MTick) error

	// -----------------------------------------------------------------------------

	// QueryTicks reads every requested symbol from one consistent snapshot.
	// Each slice is ordered by timestamp.
	QueryTicks(ctx context.Context, query models.MTickQuery) (map[string][]models.MTick, error)

	// -----------------------------------------------------------------------------

	// CleanupOldData removes trades older than the retention period and
	// returns the number removed.
	CleanupOldData(ctx context.Context, retention time.Duration) (int64, error)

	// -----------------------------------------------------------------------------
	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	// -----------------------------------------------------------------------------
	// Close the database connection
	Close() error
}
