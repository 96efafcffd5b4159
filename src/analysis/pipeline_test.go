package analysis

import (
	"context"
	"errors"
	"io"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pair-analytics/src/helpers"
	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

type fakeStore struct {
	mu      sync.Mutex
	ticks   map[string][]models.MTick
	err     error
	queries []models.MTickQuery
}

func (s *fakeStore) Initialize(context.Context) error { return nil }

func (s *fakeStore) SaveTicksBulk(_ context.Context, ticks []models.MTick) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range ticks {
		s.ticks[t.Symbol] = append(s.ticks[t.Symbol], t)
	}
	return nil
}

func (s *fakeStore) QueryTicks(_ context.Context, q models.MTickQuery) (map[string][]models.MTick, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string][]models.MTick)
	for _, sym := range q.Symbols {
		out[sym] = append([]models.MTick(nil), s.ticks[sym]...)
	}
	return out, nil
}

func (s *fakeStore) CleanupOldData(context.Context, time.Duration) (int64, error) { return 0, nil }
func (s *fakeStore) Ping(context.Context) error                                   { return nil }
func (s *fakeStore) Close() error                                                 { return nil }

func newTestPipeline(t *testing.T, store *fakeStore) *PairAnalyticsPipeline {
	t.Helper()
	p, err := NewPairAnalyticsPipeline(PipelineConfig{
		Store:        store,
		StoreBackend: "fake",
		Now:          func() time.Time { return epoch.Add(time.Hour) },
	}, logger.NewLoggerWithWriter(io.Discard, "debug", "pipeline"))
	require.NoError(t, err)
	return p
}

func scenarioStore() *fakeStore {
	store := &fakeStore{ticks: make(map[string][]models.MTick)}
	xs := []float64{100, 101, 102, 103}
	ys := []float64{50, 50.5, 51, 51.5}
	for i := range xs {
		ts := epoch.Add(time.Duration(i) * time.Second)
		store.ticks["XUSDT"] = append(store.ticks["XUSDT"], models.MTick{Symbol: "XUSDT", Timestamp: ts, Price: xs[i], Quantity: 1})
		store.ticks["YUSDT"] = append(store.ticks["YUSDT"], models.MTick{Symbol: "YUSDT", Timestamp: ts, Price: ys[i], Quantity: 1})
	}
	return store
}

func TestPipelineEndToEndScenario(t *testing.T) {
	p := newTestPipeline(t, scenarioStore())

	res, err := p.Run(context.Background(), PairRequest{
		SymbolX: "xusdt", SymbolY: "YUSDT", Timeframe: "1s", ZWindow: 2, CorrWindow: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "XUSDT", res.SymbolX)
	assert.Equal(t, "1 Second", res.Timeframe)
	assert.Equal(t, time.Second, res.BucketWidth)
	assert.Equal(t, 4, res.BarsX)
	require.Len(t, res.Series, 4)
	assert.InDelta(t, 0.5, res.Hedge.Beta, 1e-9)
	assert.InDelta(t, 0.0, res.Hedge.Alpha, 1e-7)
	for _, v := range res.Spread {
		assert.InDelta(t, 0, v, 1e-9)
	}
	assert.Equal(t, 3, res.Correlation.DefinedCount())
	r, ok := res.Correlation.Last()
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-12)
	assert.Nil(t, res.Stationarity)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, epoch.Add(time.Hour), res.GeneratedAt)
}

func TestPipelineRejectsUnknownTimeframeBeforeFetch(t *testing.T) {
	store := scenarioStore()
	p := newTestPipeline(t, store)

	_, err := p.Run(context.Background(), PairRequest{SymbolX: "XUSDT", SymbolY: "YUSDT", Timeframe: "3 fortnights"})
	assert.True(t, errors.Is(err, helpers.ErrInvalidTimeframe))
	assert.Empty(t, store.queries)
}

func TestPipelineValidatesRequest(t *testing.T) {
	tests := []struct {
		name string
		req  PairRequest
	}{
		{"missing symbol", PairRequest{SymbolX: "XUSDT", Timeframe: "1m"}},
		{"same symbol", PairRequest{SymbolX: "XUSDT", SymbolY: "xusdt", Timeframe: "1m"}},
		{"z window too small", PairRequest{SymbolX: "XUSDT", SymbolY: "YUSDT", Timeframe: "1m", ZWindow: 1}},
		{"corr window negative", PairRequest{SymbolX: "XUSDT", SymbolY: "YUSDT", Timeframe: "1m", CorrWindow: -3}},
		{"negative lookback", PairRequest{SymbolX: "XUSDT", SymbolY: "YUSDT", Timeframe: "1m", Lookback: -time.Minute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := scenarioStore()
			_, err := newTestPipeline(t, store).Run(context.Background(), tt.req)
			assert.True(t, errors.Is(err, helpers.ErrInvalidParameter), "got %v", err)
			assert.Empty(t, store.queries)
		})
	}
}

func TestPipelineMisalignedSeries(t *testing.T) {
	store := scenarioStore()
	for i := range store.ticks["YUSDT"] {
		store.ticks["YUSDT"][i].Timestamp = store.ticks["YUSDT"][i].Timestamp.Add(10 * time.Minute)
	}

	_, err := newTestPipeline(t, store).Run(context.Background(),
		PairRequest{SymbolX: "XUSDT", SymbolY: "YUSDT", Timeframe: "1s"})
	assert.True(t, errors.Is(err, helpers.ErrMisalignedSeries))
	assert.True(t, errors.Is(err, helpers.ErrInsufficientData))
}

func TestPipelineMissingSymbolIsInsufficientData(t *testing.T) {
	_, err := newTestPipeline(t, scenarioStore()).Run(context.Background(),
		PairRequest{SymbolX: "XUSDT", SymbolY: "ZUSDT", Timeframe: "1s"})
	assert.Equal(t, helpers.KindInsufficientData, helpers.KindOf(err))
}

func TestPipelineDegenerateRegression(t *testing.T) {
	store := scenarioStore()
	for i := range store.ticks["XUSDT"] {
		store.ticks["XUSDT"][i].Price = 100
	}

	_, err := newTestPipeline(t, store).Run(context.Background(),
		PairRequest{SymbolX: "XUSDT", SymbolY: "YUSDT", Timeframe: "1s"})
	assert.True(t, errors.Is(err, helpers.ErrDegenerateRegression))
}

func TestPipelineStoreUnavailable(t *testing.T) {
	store := scenarioStore()
	store.err = errors.New("connection refused")

	_, err := newTestPipeline(t, store).Run(context.Background(),
		PairRequest{SymbolX: "XUSDT", SymbolY: "YUSDT", Timeframe: "1s"})
	assert.True(t, errors.Is(err, helpers.ErrStoreUnavailable))
	assert.ErrorContains(t, err, "connection refused")
	assert.Len(t, store.queries, 1)
}

func TestPipelineStationarityNeedsEnoughPoints(t *testing.T) {
	_, err := newTestPipeline(t, scenarioStore()).Run(context.Background(), PairRequest{
		SymbolX: "XUSDT", SymbolY: "YUSDT", Timeframe: "1s", ZWindow: 2, WithStationarity: true,
	})
	assert.True(t, errors.Is(err, helpers.ErrInsufficientData))
}

func TestPipelineCointegratedPair(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	store := &fakeStore{ticks: make(map[string][]models.MTick)}
	x := 30000.0
	noise := 0.0
	for i := 0; i < 400; i++ {
		ts := epoch.Add(time.Duration(i) * time.Minute)
		x += 20 * rng.NormFloat64()
		noise = 0.2*noise + 5*rng.NormFloat64()
		y := 100 + 0.05*x + noise
		store.ticks["BTCUSDT"] = append(store.ticks["BTCUSDT"],
			models.MTick{Symbol: "BTCUSDT", Timestamp: ts, Price: x, Quantity: 0.1},
			models.MTick{Symbol: "BTCUSDT", Timestamp: ts.Add(20 * time.Second), Price: x + 1, Quantity: 0.2})
		store.ticks["ETHUSDT"] = append(store.ticks["ETHUSDT"],
			models.MTick{Symbol: "ETHUSDT", Timestamp: ts.Add(5 * time.Second), Price: y, Quantity: 1})
	}

	p := newTestPipeline(t, store)
	res, err := p.Run(context.Background(), PairRequest{
		SymbolX: "BTCUSDT", SymbolY: "ETHUSDT", Timeframe: "1 Minute", WithStationarity: true,
	})
	require.NoError(t, err)

	assert.Len(t, res.Series, 400)
	assert.InDelta(t, 0.05, res.Hedge.Beta, 0.01)
	assert.Equal(t, 400-DefaultZWindow+1, res.ZScore.DefinedCount())
	assert.Equal(t, 400-DefaultCorrWindow+1, res.Correlation.DefinedCount())
	require.NotNil(t, res.Stationarity)
	assert.Less(t, res.Stationarity.PValue, 0.05)
	assert.NotEqual(t, models.SignalNone, res.Signal.Direction)

	// Concurrent runs share nothing.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			again, err := p.Run(context.Background(), PairRequest{
				SymbolX: "BTCUSDT", SymbolY: "ETHUSDT", Timeframe: "1m", WithStationarity: true,
			})
			if assert.NoError(t, err) {
				assert.Equal(t, res.Hedge, again.Hedge)
				assert.Equal(t, res.Spread, again.Spread)
			}
		}()
	}
	wg.Wait()
}

func TestPipelineLookbackBoundsQuery(t *testing.T) {
	store := scenarioStore()
	_, err := newTestPipeline(t, store).Run(context.Background(), PairRequest{
		SymbolX: "XUSDT", SymbolY: "YUSDT", Timeframe: "1s", ZWindow: 2, CorrWindow: 2, Lookback: 2 * time.Hour,
	})
	require.NoError(t, err)
	require.Len(t, store.queries, 1)
	assert.Equal(t, epoch.Add(-time.Hour), store.queries[0].From)
	assert.ElementsMatch(t, []string{"XUSDT", "YUSDT"}, store.queries[0].Symbols)
}
