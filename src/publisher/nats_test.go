package publisher

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		prefix, x, y, want string
	}{
		{"pairs.signals", "BTCUSDT", "ETHUSDT", "pairs.signals.BTCUSDT.ETHUSDT"},
		{"p", "btc.usdt", "eth*", "p.BTC_USDT.ETH_"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Subject(tt.prefix, tt.x, tt.y))
	}
}

func TestNewSignalPublisherFallsBack(t *testing.T) {
	log := logger.NewLoggerWithWriter(io.Discard, "error", "test")

	cfg := &models.MConfig{}
	assert.IsType(t, NopSignalPublisher{}, NewSignalPublisher(cfg, log))

	cfg.Signals = models.MSignalsConfig{Enabled: true, NatsURL: "nats://127.0.0.1:1"}
	p := NewSignalPublisher(cfg, log)
	assert.IsType(t, NopSignalPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), "A", "B", models.MSignal{Direction: models.SignalNeutral}))
	assert.NoError(t, p.Close())
}
