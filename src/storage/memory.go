package storage

import (
	"context"
	"sync"
	"time"

	"pair-analytics/src/logger"
	"pair-analytics/src/models"
	"pair-analytics/src/utils"
)

// -----------------------------------------------------------------------------
// MemoryTickStore keeps the newest trades of each symbol in a ring buffer.
// -----------------------------------------------------------------------------

type MemoryTickStore struct {
	DataStreams   map[string]*utils.RingBuffer[models.MTick]
	MaxDataPoints int
	Logger        *logger.Logger
	mu            sync.RWMutex
	nextID        int64
}

// -----------------------------------------------------------------------------

func NewMemoryTickStore(maxDataPoints int, log *logger.Logger) *MemoryTickStore {
	return &MemoryTickStore{
		DataStreams:   make(map[string]*utils.RingBuffer[models.MTick]),
		MaxDataPoints: maxDataPoints,
		Logger:        log,
	}
}

// -----------------------------------------------------------------------------

func (m *MemoryTickStore) Initialize(context.Context) error {
	return nil
}

// -----------------------------------------------------------------------------

// SaveTicksBulk appends trades; the oldest trades of a full symbol are evicted.
func (m *MemoryTickStore) SaveTicksBulk(_ context.Context, ticks []models.MTick) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range ticks {
		buffer, ok := m.DataStreams[t.Symbol]
		if !ok {
			buffer = utils.NewRingBuffer[models.MTick](m.MaxDataPoints)
			m.DataStreams[t.Symbol] = buffer
		}
		m.nextID++
		t.ID = m.nextID
		buffer.Append(t)
	}
	return nil
}

// -----------------------------------------------------------------------------

// QueryTicks copies the requested ranges under one read lock.
func (m *MemoryTickStore) QueryTicks(ctx context.Context, q models.MTickQuery) (map[string][]models.MTick, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable(err, "query cancelled")
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]models.MTick, len(q.Symbols))
	for _, symbol := range q.Symbols {
		ticks := []models.MTick{}
		if buffer, ok := m.DataStreams[symbol]; ok {
			for _, t := range buffer.GetAll() {
				if !q.From.IsZero() && t.Timestamp.Before(q.From) {
					continue
				}
				if !q.To.IsZero() && !t.Timestamp.Before(q.To) {
					continue
				}
				ticks = append(ticks, t)
			}
		}
		sortTicks(ticks)
		out[symbol] = ticks
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// CleanupOldData drops trades older than the retention period.
func (m *MemoryTickStore) CleanupOldData(_ context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for symbol, buffer := range m.DataStreams {
		removed += int64(buffer.Filter(func(t models.MTick) bool {
			return !t.Timestamp.Before(cutoff)
		}))
		if buffer.Size() == 0 {
			delete(m.DataStreams, symbol)
		}
	}
	return removed, nil
}

// -----------------------------------------------------------------------------

func (m *MemoryTickStore) Ping(context.Context) error {
	return nil
}

// -----------------------------------------------------------------------------

func (m *MemoryTickStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DataStreams = make(map[string]*utils.RingBuffer[models.MTick])
	return nil
}
