package interfaces

import (
	"context"
	"sync"

	"pair-analytics/src/models"
)

// -----------------------------------------------------------------------------
// IDataSource interface for streaming trades from an exchange.
// -----------------------------------------------------------------------------

type IDataSource interface {

	// Name returns the unique identifier of the source
	Name() string

	// -----------------------------------------------------------------------------

	// IsRealTime returns true if the source pushes trades as they happen
	IsRealTime() bool

	// -----------------------------------------------------------------------------

	// UpdateSymbols replaces the list of symbols being followed
	UpdateSymbols(symbols []string) error

	// -----------------------------------------------------------------------------

	// Start begins producing trades.
	// ctx: controls the lifecycle (cancellation stops the source)
	// outputChan: receives batches of new trades
	// wg: WaitGroup to signal when the source has fully stopped
	Start(ctx context.Context, outputChan chan<- []models.MTick, wg *sync.WaitGroup) error

	// -----------------------------------------------------------------------------

	// Stop terminates the source if Start's context is not cancelled.
	Stop() error
}
