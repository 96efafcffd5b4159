package binance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

type fakeNetwork struct {
	mu        sync.Mutex
	responses map[string]string
	fail      map[string]bool
	calls     []map[string]string
}

func (f *fakeNetwork) Get(ctx context.Context, url string, params map[string]string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, params)
	sym := params["symbol"]
	if f.fail[sym] {
		return nil, errors.New("boom")
	}
	return []byte(f.responses[sym]), nil
}

func testConfig(symbols ...string) *models.MConfig {
	return &models.MConfig{Ingestion: models.MIngestionConfig{
		BaseURL:        "https://api.example.test/",
		WSURL:          "wss://stream.example.test",
		Symbols:        symbols,
		PollIntervalMs: 10,
		TradesPerPoll:  50,
	}}
}

func quietLogger() *logger.Logger {
	return logger.NewLoggerWithWriter(io.Discard, "error", "test")
}

func trade(id int64, price string) string {
	return fmt.Sprintf(`{"id":%d,"price":"%s","qty":"1","time":%d}`, id, price, 1700000000000+id)
}

func TestFetchTradesDeduplicatesAcrossPolls(t *testing.T) {
	net := &fakeNetwork{responses: map[string]string{
		"BTCUSDT": "[" + trade(1, "100") + "," + trade(2, "101") + "]",
	}}
	src := NewRESTTradeSource(testConfig("btcusdt"), net, quietLogger())

	ticks, err := src.FetchTrades(context.Background())
	require.NoError(t, err)
	assert.Len(t, ticks, 2)

	net.responses["BTCUSDT"] = "[" + trade(2, "101") + "," + trade(3, "102") + "]"
	ticks, err = src.FetchTrades(context.Background())
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, 102.0, ticks[0].Price)

	assert.Equal(t, "50", net.calls[0]["limit"])
}

func TestFetchTradesPartialFailure(t *testing.T) {
	net := &fakeNetwork{
		responses: map[string]string{"ETHUSDT": "[" + trade(1, "2000") + "]"},
		fail:      map[string]bool{"BTCUSDT": true},
	}
	src := NewRESTTradeSource(testConfig("BTCUSDT", "ETHUSDT"), net, quietLogger())

	ticks, err := src.FetchTrades(context.Background())
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, "ETHUSDT", ticks[0].Symbol)
}

func TestFetchTradesAllFail(t *testing.T) {
	net := &fakeNetwork{fail: map[string]bool{"BTCUSDT": true}}
	src := NewRESTTradeSource(testConfig("BTCUSDT"), net, quietLogger())

	_, err := src.FetchTrades(context.Background())
	assert.Error(t, err)
}

func TestRESTSourceStartPushesBatches(t *testing.T) {
	net := &fakeNetwork{responses: map[string]string{"BTCUSDT": "[" + trade(1, "100") + "]"}}
	src := NewRESTTradeSource(testConfig("BTCUSDT"), net, quietLogger())

	out := make(chan []models.MTick, 4)
	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(context.Background())

	require.NoError(t, src.Start(ctx, out, &wg))
	assert.Error(t, src.Start(ctx, out, &wg))

	select {
	case batch := <-out:
		require.Len(t, batch, 1)
		assert.Equal(t, "BTCUSDT", batch[0].Symbol)
	case <-time.After(2 * time.Second):
		t.Fatal("no batch received")
	}

	cancel()
	wg.Wait()
}

func TestRESTSourceUpdateSymbols(t *testing.T) {
	src := NewRESTTradeSource(testConfig("BTCUSDT"), &fakeNetwork{}, quietLogger())
	require.NoError(t, src.UpdateSymbols([]string{" ethusdt ", ""}))
	assert.Equal(t, []string{"ETHUSDT"}, src.getSymbols())
	assert.Error(t, src.Stop())
}
