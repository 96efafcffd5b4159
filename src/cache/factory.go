package cache

import (
	"context"

	"pair-analytics/src/interfaces"
	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

// NewResultCache returns a Redis cache when enabled, otherwise an in-memory
// one. An unreachable Redis falls back to memory with a warning.
func NewResultCache(ctx context.Context, cfg *models.MConfig, log *logger.Logger) interfaces.IResultCache {
	if !cfg.Cache.Enabled {
		return NewMemoryResultCache()
	}
	rc, err := NewRedisResultCache(ctx, cfg.Cache, log)
	if err != nil {
		log.Warning("Redis cache unavailable, using memory cache: %v", err)
		return NewMemoryResultCache()
	}
	return rc
}
