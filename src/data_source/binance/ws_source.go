package binance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

const (
	wsFlushInterval    = 250 * time.Millisecond
	wsMaxBatch         = 1000
	wsBaseReconnect    = time.Second
	wsMaxReconnect     = 30 * time.Second
	wsHandshakeTimeout = 10 * time.Second
)

// WSTradeSource follows the combined <symbol>@trade streams and forwards
// trades in small batches. Dropped connections are re-dialled with backoff.
type WSTradeSource struct {
	Config     *models.MConfig
	Logger     *logger.Logger
	Dialer     *websocket.Dialer
	symbols    atomic.Value // []string
	resubCh    chan struct{}
	cancelFunc context.CancelFunc
	outputChan chan<- []models.MTick
	isRunning  atomic.Bool
	mu         sync.Mutex
}

// -----------------------------------------------------------------------------

func NewWSTradeSource(cfg *models.MConfig, log *logger.Logger) *WSTradeSource {
	s := &WSTradeSource{
		Config:  cfg,
		Logger:  log.Named("BinanceWS"),
		Dialer:  &websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout},
		resubCh: make(chan struct{}, 1),
	}
	s.symbols.Store(normalizeSymbols(cfg.Ingestion.Symbols))
	return s
}

func (s *WSTradeSource) Name() string { return "binance_ws" }

func (s *WSTradeSource) IsRealTime() bool { return true }

// -----------------------------------------------------------------------------

// StreamURL returns the combined stream endpoint for the followed symbols.
func (s *WSTradeSource) StreamURL() string {
	return strings.TrimRight(s.Config.Ingestion.WSURL, "/") + "/stream?streams=" + StreamNames(s.getSymbols())
}

// -----------------------------------------------------------------------------

func (s *WSTradeSource) Start(parentCtx context.Context, outputChan chan<- []models.MTick, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning.Load() {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel
	s.outputChan = outputChan
	s.isRunning.Store(true)

	wg.Add(1)
	go s.runLoop(ctx, wg)
	s.Logger.Info("Started %s for %v", s.Name(), s.getSymbols())
	return nil
}

// -----------------------------------------------------------------------------

func (s *WSTradeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning.Load() {
		return fmt.Errorf("source %s is not running", s.Name())
	}
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning.Store(false)
	s.Logger.Info("Stopped %s", s.Name())
	return nil
}

// -----------------------------------------------------------------------------

func (s *WSTradeSource) runLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer s.isRunning.Store(false)

	delay := wsBaseReconnect
	for {
		if len(s.getSymbols()) > 0 {
			connected, err := s.session(ctx)
			if ctx.Err() != nil {
				return
			}
			if connected {
				delay = wsBaseReconnect
			}
			if err != nil {
				s.Logger.Warning("Stream session ended: %v. Reconnecting in %v", err, delay)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-s.resubCh:
		case <-time.After(delay):
			delay *= 2
			if delay > wsMaxReconnect {
				delay = wsMaxReconnect
			}
		}
	}
}

// -----------------------------------------------------------------------------

// session runs one connection until it fails, the context ends or the
// symbol list changes. connected reports whether the dial succeeded.
func (s *WSTradeSource) session(ctx context.Context) (connected bool, err error) {
	conn, _, err := s.Dialer.DialContext(ctx, s.StreamURL(), nil)
	if err != nil {
		return false, fmt.Errorf("websocket dial: %w", err)
	}
	s.Logger.Info("Connected to %s", s.StreamURL())

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		select {
		case <-sessCtx.Done():
		case <-s.resubCh:
			s.Logger.Info("Symbol list changed, resubscribing")
		}
		cancel()
		conn.Close()
	}()

	ticks := make(chan models.MTick, wsMaxBatch)
	readErr := make(chan error, 1)
	go func() {
		defer close(ticks)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				readErr <- fmt.Errorf("websocket read: %w", err)
				return
			}
			tick, ok, err := ParseStreamMessage(message)
			if err != nil {
				s.Logger.Debug("Skipping message: %v", err)
				continue
			}
			if !ok {
				continue
			}
			select {
			case ticks <- tick:
			case <-sessCtx.Done():
				readErr <- sessCtx.Err()
				return
			}
		}
	}()

	flush := time.NewTicker(wsFlushInterval)
	defer flush.Stop()

	batch := make([]models.MTick, 0, wsMaxBatch)
	send := func() bool {
		if len(batch) == 0 {
			return true
		}
		if push(ctx, s.outputChan, batch) != nil {
			return false
		}
		batch = make([]models.MTick, 0, wsMaxBatch)
		return true
	}

	for {
		select {
		case tick, open := <-ticks:
			if !open {
				send()
				return true, <-readErr
			}
			batch = append(batch, tick)
			if len(batch) >= wsMaxBatch && !send() {
				return true, ctx.Err()
			}
		case <-flush.C:
			if !send() {
				return true, ctx.Err()
			}
		}
	}
}

// -----------------------------------------------------------------------------

// UpdateSymbols swaps the followed symbols and forces a resubscription.
func (s *WSTradeSource) UpdateSymbols(symbols []string) error {
	s.symbols.Store(normalizeSymbols(symbols))
	select {
	case s.resubCh <- struct{}{}:
	default:
	}
	s.Logger.Info("Updated symbol list. New count: %d", len(symbols))
	return nil
}

func (s *WSTradeSource) getSymbols() []string {
	return s.symbols.Load().([]string)
}
