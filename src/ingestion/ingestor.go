package ingestion

import (
	"context"
	"time"

	"pair-analytics/src/helpers"
	"pair-analytics/src/interfaces"
	"pair-analytics/src/logger"
	"pair-analytics/src/metrics"
	"pair-analytics/src/models"
)

const (
	defaultCleanupInterval = 30 * time.Minute
	saveRetries            = 3
	saveBaseDelay          = 200 * time.Millisecond
)

// Ingestor drains trade batches into the tick store and enforces retention.
type Ingestor struct {
	Store           interfaces.ITickStore
	Logger          *logger.Logger
	Retention       time.Duration
	CleanupInterval time.Duration
	// OnBatch, when set, observes every persisted batch.
	OnBatch func(ticks []models.MTick)
}

// -----------------------------------------------------------------------------

func NewIngestor(cfg *models.MConfig, store interfaces.ITickStore, log *logger.Logger) *Ingestor {
	interval := time.Duration(cfg.Ingestion.CleanupIntervalMin) * time.Minute
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	return &Ingestor{
		Store:           store,
		Logger:          log.Named("Ingestor"),
		Retention:       time.Duration(cfg.Storage.RetentionDays) * 24 * time.Hour,
		CleanupInterval: interval,
	}
}

// -----------------------------------------------------------------------------

// Run consumes updates until ctx is done or the channel is closed. A batch
// that still fails after retries is dropped and logged.
func (in *Ingestor) Run(ctx context.Context, updates <-chan []models.MTick) error {
	cleanup := time.NewTicker(in.CleanupInterval)
	defer cleanup.Stop()

	in.Logger.Info("Starting ingestion loop (retention %v)...", in.Retention)

	for {
		select {
		case <-ctx.Done():
			in.Logger.Info("Ingestion loop stopped")
			return ctx.Err()

		case batch, ok := <-updates:
			if !ok {
				in.Logger.Info("Data source closed channel.")
				return nil
			}
			if len(batch) == 0 {
				continue
			}
			if err := in.Persist(ctx, batch); err != nil {
				in.Logger.Error("Dropping batch of %d trades: %v", len(batch), err)
			}

		case <-cleanup.C:
			in.Cleanup(ctx)
		}
	}
}

// -----------------------------------------------------------------------------

// Persist saves one batch with retries and updates the ingestion counters.
func (in *Ingestor) Persist(ctx context.Context, batch []models.MTick) error {
	_, err := helpers.RetryWithBackoff(ctx, "save ticks", saveRetries, saveBaseDelay, in.Logger,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, in.Store.SaveTicksBulk(ctx, batch)
		})
	if err != nil {
		return err
	}

	counts := make(map[string]int)
	for _, t := range batch {
		counts[t.Symbol]++
	}
	for sym, n := range counts {
		metrics.TicksIngested.WithLabelValues(sym).Add(float64(n))
	}

	in.Logger.Debug("Persisted %d trades for %d symbols", len(batch), len(counts))
	if in.OnBatch != nil {
		in.OnBatch(batch)
	}
	return nil
}

// -----------------------------------------------------------------------------

// Cleanup deletes ticks older than the retention window. Zero retention
// keeps everything.
func (in *Ingestor) Cleanup(ctx context.Context) int64 {
	if in.Retention <= 0 {
		return 0
	}
	removed, err := in.Store.CleanupOldData(ctx, in.Retention)
	if err != nil {
		in.Logger.Warning("Retention cleanup failed: %v", err)
		return 0
	}
	if removed > 0 {
		in.Logger.Info("Retention cleanup removed %d ticks", removed)
	}
	return removed
}
