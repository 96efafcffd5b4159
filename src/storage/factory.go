package storage

import (
	"fmt"

	"pair-analytics/src/interfaces"
	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

// NewTickStore builds the store selected by storage.db_type. The returned
// store still needs Initialize.
func NewTickStore(cfg *models.MConfig, log *logger.Logger) (interfaces.ITickStore, error) {
	switch cfg.Storage.DBType {
	case "sqlite":
		return NewSQLiteTickStore(cfg, log), nil
	case "postgres":
		return NewPostgresTickStore(cfg, log), nil
	case "memory":
		return NewMemoryTickStore(cfg.Storage.MemoryCapacity, log), nil
	default:
		return nil, fmt.Errorf("unsupported database type '%s'", cfg.Storage.DBType)
	}
}
