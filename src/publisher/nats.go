package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"pair-analytics/src/interfaces"
	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

const defaultSubjectPrefix = "pairs.signal"

// SignalEvent is the JSON body published for every signal change.
type SignalEvent struct {
	SymbolX   string         `json:"symbol_x"`
	SymbolY   string         `json:"symbol_y"`
	Signal    models.MSignal `json:"signal"`
	Published time.Time      `json:"published_at"`
}

// NatsSignalPublisher emits signal changes on <prefix>.<X>.<Y>.
type NatsSignalPublisher struct {
	conn   *nats.Conn
	prefix string
	Logger *logger.Logger
}

// -----------------------------------------------------------------------------

func NewNatsSignalPublisher(cfg models.MSignalsConfig, log *logger.Logger) (*NatsSignalPublisher, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name("pair-analytics"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
		nats.Timeout(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	log.Info("Signal publisher connected to %s", cfg.NatsURL)
	return &NatsSignalPublisher{conn: conn, prefix: prefix, Logger: log}, nil
}

// -----------------------------------------------------------------------------

// Subject builds the NATS subject for a pair.
func Subject(prefix, symbolX, symbolY string) string {
	clean := func(s string) string {
		return strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(strings.ToUpper(s))
	}
	return fmt.Sprintf("%s.%s.%s", prefix, clean(symbolX), clean(symbolY))
}

func (p *NatsSignalPublisher) Publish(ctx context.Context, symbolX, symbolY string, signal models.MSignal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(SignalEvent{
		SymbolX:   symbolX,
		SymbolY:   symbolY,
		Signal:    signal,
		Published: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal signal: %w", err)
	}
	return p.conn.Publish(Subject(p.prefix, symbolX, symbolY), data)
}

func (p *NatsSignalPublisher) Close() error {
	if p.conn != nil {
		if err := p.conn.Drain(); err != nil {
			p.conn.Close()
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// NopSignalPublisher drops every signal.
type NopSignalPublisher struct{}

func (NopSignalPublisher) Publish(context.Context, string, string, models.MSignal) error { return nil }

func (NopSignalPublisher) Close() error { return nil }

// -----------------------------------------------------------------------------

// NewSignalPublisher returns a NATS publisher when enabled. Connection
// failures degrade to the no-op publisher.
func NewSignalPublisher(cfg *models.MConfig, log *logger.Logger) interfaces.ISignalPublisher {
	if !cfg.Signals.Enabled {
		return NopSignalPublisher{}
	}
	p, err := NewNatsSignalPublisher(cfg.Signals, log)
	if err != nil {
		log.Warning("Signal publishing disabled: %v", err)
		return NopSignalPublisher{}
	}
	return p
}
