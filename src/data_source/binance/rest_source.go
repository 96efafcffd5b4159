package binance

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"pair-analytics/src/interfaces"
	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

const (
	defaultPollInterval  = time.Second
	defaultTradesPerPoll = 500
	maxConcurrentFetches = 4
)

// RESTTradeSource polls the recent trades endpoint for every followed symbol.
type RESTTradeSource struct {
	Config     *models.MConfig
	Network    interfaces.INetworkManager
	Logger     *logger.Logger
	symbols    atomic.Value // []string
	lastIDs    map[string]int64
	lastIDsMu  sync.RWMutex
	cancelFunc context.CancelFunc
	ctx        context.Context
	outputChan chan<- []models.MTick
	isRunning  atomic.Bool
	mu         sync.Mutex
}

// -----------------------------------------------------------------------------

func NewRESTTradeSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *RESTTradeSource {
	s := &RESTTradeSource{
		Config:  cfg,
		Network: netMgr,
		Logger:  log.Named("BinanceREST"),
		lastIDs: make(map[string]int64),
	}
	s.symbols.Store(normalizeSymbols(cfg.Ingestion.Symbols))
	return s
}

func (s *RESTTradeSource) Name() string { return "binance_rest" }

// IsRealTime returns false: trades arrive on the polling interval.
func (s *RESTTradeSource) IsRealTime() bool { return false }

// -----------------------------------------------------------------------------

// FetchTrades pulls new trades for every symbol concurrently. A failing
// symbol is logged and skipped; the call fails only when all of them fail.
func (s *RESTTradeSource) FetchTrades(ctx context.Context) ([]models.MTick, error) {
	symbols := s.getSymbols()
	if len(symbols) == 0 {
		return nil, nil
	}

	var (
		mu       sync.Mutex
		all      []models.MTick
		failures int
		lastErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			ticks, err := s.fetchSymbol(gctx, sym)
			if err != nil {
				s.Logger.Warning("Error fetching trades for %s: %v", sym, err)
				mu.Lock()
				failures++
				lastErr = err
				mu.Unlock()
				return nil
			}
			mu.Lock()
			all = append(all, ticks...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if failures == len(symbols) {
		return nil, fmt.Errorf("all fetches failed: %w", lastErr)
	}
	return all, nil
}

// -----------------------------------------------------------------------------

func (s *RESTTradeSource) fetchSymbol(ctx context.Context, symbol string) ([]models.MTick, error) {
	limit := s.Config.Ingestion.TradesPerPoll
	if limit <= 0 {
		limit = defaultTradesPerPoll
	}

	url := strings.TrimRight(s.Config.Ingestion.BaseURL, "/") + "/api/v3/trades"
	body, err := s.Network.Get(ctx, url, map[string]string{
		"symbol": symbol,
		"limit":  strconv.Itoa(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("network error for %s: %w", symbol, err)
	}

	s.lastIDsMu.RLock()
	lastID := s.lastIDs[symbol]
	s.lastIDsMu.RUnlock()

	ticks, maxID, err := ParseRESTTrades(symbol, body, lastID)
	if err != nil {
		return nil, err
	}

	s.lastIDsMu.Lock()
	if maxID > s.lastIDs[symbol] {
		s.lastIDs[symbol] = maxID
	}
	s.lastIDsMu.Unlock()

	return ticks, nil
}

// -----------------------------------------------------------------------------

// Start begins the polling loop.
func (s *RESTTradeSource) Start(parentCtx context.Context, outputChan chan<- []models.MTick, wg *sync.WaitGroup) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning.Load() {
		return fmt.Errorf("source %s is already running", s.Name())
	}

	ctx, cancel := context.WithCancel(parentCtx)
	s.cancelFunc = cancel
	s.ctx = ctx
	s.outputChan = outputChan
	s.isRunning.Store(true)

	wg.Add(1)
	go s.runLoop(ctx, wg)
	s.Logger.Info("Started %s for %v", s.Name(), s.getSymbols())
	return nil
}

// -----------------------------------------------------------------------------

func (s *RESTTradeSource) Stop() error {
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

func (s *RESTTradeSource) runLoop(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	defer s.isRunning.Store(false)

	interval := time.Duration(s.Config.Ingestion.PollIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ticks, err := s.FetchTrades(ctx)
			if err != nil {
				s.Logger.Warning("Error fetching trades: %v", err)
				continue
			}
			if len(ticks) == 0 {
				continue
			}
			if err := push(ctx, s.outputChan, ticks); err != nil {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *RESTTradeSource) UpdateSymbols(symbols []string) error {
	s.symbols.Store(normalizeSymbols(symbols))
	s.Logger.Info("Updated symbol list. New count: %d", len(symbols))
	return nil
}

func (s *RESTTradeSource) getSymbols() []string {
	return s.symbols.Load().([]string)
}

// -----------------------------------------------------------------------------

func push(ctx context.Context, out chan<- []models.MTick, ticks []models.MTick) error {
	if out == nil {
		return fmt.Errorf("output channel is nil")
	}
	select {
	case out <- ticks:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func normalizeSymbols(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
