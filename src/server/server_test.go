package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pair-analytics/src/analysis"
	"pair-analytics/src/cache"
	"pair-analytics/src/config"
	"pair-analytics/src/grpc_control"
	"pair-analytics/src/interfaces"
	"pair-analytics/src/logger"
	"pair-analytics/src/models"
	"pair-analytics/src/storage"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type countingRunner struct {
	inner PairRunner
	calls atomic.Int32
}

func (r *countingRunner) Run(ctx context.Context, req analysis.PairRequest) (*models.MPairAnalytics, error) {
	r.calls.Add(1)
	return r.inner.Run(ctx, req)
}

type brokenStore struct {
	*storage.MemoryTickStore
}

func (brokenStore) QueryTicks(context.Context, models.MTickQuery) (map[string][]models.MTick, error) {
	return nil, errors.New("disk I/O error")
}

type recordingPublisher struct {
	mu      sync.Mutex
	signals []models.MSignal
}

func (p *recordingPublisher) Publish(_ context.Context, _, _ string, s models.MSignal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signals = append(p.signals, s)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.signals)
}

func quiet() *logger.Logger {
	return logger.NewLoggerWithWriter(io.Discard, "error", "test")
}

func testConfig() *models.MConfig {
	return &models.MConfig{
		Storage:   models.MStorageConfig{DBType: "memory"},
		Ingestion: models.MIngestionConfig{Symbols: []string{"XUSDT", "YUSDT"}},
		Analytics: models.MAnalyticsConfig{
			DefaultSymbolX:   "XUSDT",
			DefaultSymbolY:   "YUSDT",
			DefaultTimeframe: "1s",
			ZWindow:          5,
			CorrWindow:       5,
			EntryZScore:      2,
		},
		Refresh: models.MRefreshConfig{DefaultSeconds: 1, MinSeconds: 1, MaxSeconds: 60},
	}
}

func seededStore(t *testing.T) *storage.MemoryTickStore {
	t.Helper()
	store := storage.NewMemoryTickStore(1000, quiet())
	var ticks []models.MTick
	for i := 0; i < 40; i++ {
		ts := epoch.Add(time.Duration(i) * time.Second)
		x := 100 + float64(i)
		y := 50 + 0.5*float64(i) + 0.1*float64(i%3)
		ticks = append(ticks,
			models.MTick{Symbol: "XUSDT", Timestamp: ts, Price: x, Quantity: 1},
			models.MTick{Symbol: "YUSDT", Timestamp: ts, Price: y, Quantity: 1},
		)
	}
	require.NoError(t, store.SaveTicksBulk(context.Background(), ticks))
	return store
}

type fixture struct {
	srv    *AnalyticsServer
	runner *countingRunner
	pub    *recordingPublisher
}

func newFixture(t *testing.T, store interfaces.ITickStore) *fixture {
	t.Helper()
	cfg := testConfig()

	pipeline, err := analysis.NewPairAnalyticsPipeline(analysis.NewPipelineConfig(cfg, store), quiet())
	require.NoError(t, err)
	runner := &countingRunner{inner: pipeline}

	control := grpc_control.NewControlService(&config.Config{MConfig: cfg}, nil, store, "", quiet())
	pub := &recordingPublisher{}
	srv := NewAnalyticsServer(cfg, runner, cache.NewMemoryResultCache(), pub, control, quiet())
	t.Cleanup(func() { srv.Stop() })
	return &fixture{srv: srv, runner: runner, pub: pub}
}

func (f *fixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	f.srv.Handler().ServeHTTP(w, req)
	return w
}

func TestGetConfig(t *testing.T) {
	f := newFixture(t, seededStore(t))
	w := f.get(t, "/api/config")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Timeframes []string `json:"timeframes"`
		Symbols    []string `json:"symbols"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, analysis.Timeframes(), body.Timeframes)
	assert.Equal(t, []string{"XUSDT", "YUSDT"}, body.Symbols)
}

func TestGetAnalyticsUsesCache(t *testing.T) {
	f := newFixture(t, seededStore(t))

	w := f.get(t, "/api/analytics?symbol_x=xusdt&symbol_y=YUSDT&timeframe=1s")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res models.MPairAnalytics
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "XUSDT", res.SymbolX)
	assert.Equal(t, "1 Second", res.Timeframe)
	assert.Len(t, res.Series, 40)
	assert.Equal(t, 36, res.ZScore.DefinedCount())

	// Same request under another alias hits the cache.
	w = f.get(t, "/api/analytics?symbol_x=XUSDT&symbol_y=yusdt&timeframe=1%20Second")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), f.runner.calls.Load())
}

func TestGetAnalyticsErrorMapping(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		store interfaces.ITickStore
		code  int
		kind  string
	}{
		{"bad timeframe", "/api/analytics?timeframe=3%20fortnights", nil, http.StatusBadRequest, "InvalidTimeframe"},
		{"bad window", "/api/analytics?z_window=abc", nil, http.StatusBadRequest, "InvalidParameter"},
		{"window too small", "/api/analytics?z_window=1", nil, http.StatusBadRequest, "InvalidParameter"},
		{"bad flag", "/api/analytics?stationarity=maybe", nil, http.StatusBadRequest, "InvalidParameter"},
		{"unknown symbol", "/api/analytics?symbol_x=ZZZ", nil, http.StatusUnprocessableEntity, "InsufficientData"},
		{"store down", "/api/analytics", brokenStore{storage.NewMemoryTickStore(1, quiet())}, http.StatusServiceUnavailable, "StoreUnavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := tt.store
			if store == nil {
				store = seededStore(t)
			}
			f := newFixture(t, store)
			w := f.get(t, tt.path)
			assert.Equal(t, tt.code, w.Code)

			var body models.MErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.kind, body.Kind)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture(t, seededStore(t))
	w := f.get(t, "/api/analytics/export.csv?timeframe=1s")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Contains(t, w.Header().Get("Content-Disposition"), "XUSDT_YUSDT_1second.csv")
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	assert.Equal(t, strings.Join(analysis.CSVHeader, ","), lines[0])
	assert.Len(t, lines, 1+36)
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t, seededStore(t))

	w := f.get(t, "/api/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = f.get(t, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ws_clients")
}

func TestPutSymbols(t *testing.T) {
	f := newFixture(t, seededStore(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/symbols", strings.NewReader(`{"symbols":["solusdt"]}`))
	req.Header.Set("Content-Type", "application/json")
	f.srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SOLUSDT")

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/symbols", strings.NewReader(`{"symbols":[]}`))
	f.srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefresherInterval(t *testing.T) {
	r := NewRefresher(nil, nil, nil, models.MRefreshConfig{DefaultSeconds: 5, MinSeconds: 2, MaxSeconds: 30}, quiet())
	assert.Equal(t, 5*time.Second, r.Interval(0))
	assert.Equal(t, 2*time.Second, r.Interval(1))
	assert.Equal(t, 30*time.Second, r.Interval(600))
	assert.Equal(t, 10*time.Second, r.Interval(10))
}

func TestRefresherSubscriptionsShareKey(t *testing.T) {
	r := NewRefresher(nil, nil, nil, models.MRefreshConfig{DefaultSeconds: 5}, quiet())

	k1, err := r.Subscribe(analysis.PairRequest{SymbolX: "a", SymbolY: "b", Timeframe: "1m"}, 0)
	require.NoError(t, err)
	k2, err := r.Subscribe(analysis.PairRequest{SymbolX: "A", SymbolY: "B", Timeframe: "1 Minute"}, 0)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.Equal(t, 1, r.Active())

	r.Unsubscribe(k1)
	assert.Equal(t, 1, r.Active())
	r.Unsubscribe(k2)
	assert.Equal(t, 0, r.Active())

	_, err = r.Subscribe(analysis.PairRequest{SymbolX: "a", SymbolY: "b", Timeframe: "fortnight"}, 0)
	assert.Error(t, err)
}

func TestWebSocketSubscription(t *testing.T) {
	f := newFixture(t, seededStore(t))
	f.srv.Refresher.Tick = 20 * time.Millisecond
	f.srv.startWorkers()

	ts := httptest.NewServer(f.srv.Handler())
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(models.MSubscribeCommand{
		Command: "subscribe", SymbolX: "XUSDT", SymbolY: "YUSDT", Timeframe: "1s", RefreshSeconds: 1,
	}))

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Type    string                `json:"type"`
		Key     string                `json:"key"`
		Payload models.MPairAnalytics `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "RESULT", msg.Type)
	assert.Equal(t, "XUSDT", msg.Payload.SymbolX)
	assert.NotEmpty(t, msg.Key)

	assert.Eventually(t, func() bool { return f.pub.count() >= 1 }, 2*time.Second, 20*time.Millisecond)

	require.NoError(t, conn.WriteJSON(models.MSubscribeCommand{Command: "subscribe", Timeframe: "bogus"}))
	var errMsg models.MPushMessage
	for {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		require.NoError(t, conn.ReadJSON(&errMsg))
		if errMsg.Type == "ERROR" {
			break
		}
	}
	require.NotNil(t, errMsg.Error)
	assert.Equal(t, "InvalidTimeframe", errMsg.Error.Kind)
}
