package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pair-analytics/src/logger"
	"pair-analytics/src/models"
	"pair-analytics/src/storage"
)

func writeTestConfig(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "ticks.db")
	cfg := `name: pair-analytics-test
host: 127.0.0.1
port: 18080
grpc_port: 19090
log_level: ERROR
storage:
  db_type: sqlite
  db_path: ` + dbPath + `
  query_timeout_seconds: 5
ingestion:
  enabled: false
  provider: binance_rest
  base_url: https://api.binance.com
  ws_url: wss://stream.binance.com:9443
analytics:
  default_symbol_x: XUSDT
  default_symbol_y: YUSDT
  default_timeframe: 1s
  z_window: 5
  corr_window: 5
refresh:
  default_seconds: 5
  min_seconds: 1
  max_seconds: 60
`
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path, dbPath
}

func seedSQLite(t *testing.T, dbPath string) {
	t.Helper()
	cfg := &models.MConfig{Name: "seed", Storage: models.MStorageConfig{DBType: "sqlite", DBPath: dbPath}}
	store := storage.NewSQLiteTickStore(cfg, logger.NewLoggerWithWriter(os.Stderr, "error", "seed"))
	ctx := context.Background()
	require.NoError(t, store.Initialize(ctx))
	defer store.Close()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var ticks []models.MTick
	for i := 0; i < 30; i++ {
		ts := base.Add(time.Duration(i) * time.Second)
		ticks = append(ticks,
			models.MTick{Symbol: "XUSDT", Timestamp: ts, Price: 100 + float64(i), Quantity: 1},
			models.MTick{Symbol: "YUSDT", Timestamp: ts, Price: 50 + 0.5*float64(i) + 0.1*float64(i%3), Quantity: 1},
		)
	}
	require.NoError(t, store.SaveTicksBulk(ctx, ticks))
}

func TestAnalyzeCommandPrintsJSON(t *testing.T) {
	cfgPath, dbPath := writeTestConfig(t)
	seedSQLite(t, dbPath)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"analyze", "--config", cfgPath})
	require.NoError(t, root.ExecuteContext(context.Background()))

	var res models.MPairAnalytics
	require.NoError(t, json.Unmarshal(out.Bytes(), &res))
	assert.Equal(t, "XUSDT", res.SymbolX)
	assert.Len(t, res.Series, 30)
}

func TestAnalyzeCommandWritesCSV(t *testing.T) {
	cfgPath, dbPath := writeTestConfig(t)
	seedSQLite(t, dbPath)
	csvPath := filepath.Join(t.TempDir(), "out.csv")

	root := newRootCmd()
	root.SetArgs([]string{"analyze", "--config", cfgPath, "--csv", csvPath, "--z-window", "4"})
	require.NoError(t, root.ExecuteContext(context.Background()))

	f, err := os.Open(csvPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"timestamp", "price_x", "price_y", "spread", "zscore"}, rows[0])
	assert.Len(t, rows, 1+27)
}

func TestAnalyzeCommandReportsErrors(t *testing.T) {
	cfgPath, dbPath := writeTestConfig(t)
	seedSQLite(t, dbPath)

	root := newRootCmd()
	root.SetArgs([]string{"analyze", "--config", cfgPath, "--timeframe", "3 fortnights"})
	err := root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fortnights")
}
