package interfaces

import (
	"context"
	"time"
)

// -----------------------------------------------------------------------------
// IResultCache stores serialised analytics results for a refresh period.
// -----------------------------------------------------------------------------

type IResultCache interface {
	// Get returns the cached bytes and whether they were present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	Close() error
}
