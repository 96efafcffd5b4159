package datasource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pair-analytics/src/data_source/binance"
	"pair-analytics/src/interfaces"
	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

// MultiSourceManager fans several IDataSource instances into one channel.
type MultiSourceManager struct {
	Sources    map[string]interfaces.IDataSource
	Logger     *logger.Logger
	mu         sync.RWMutex
	outputChan chan<- []models.MTick // Send-only, owned by the caller
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         *sync.WaitGroup
}

// -----------------------------------------------------------------------------

func NewMultiSourceManager(sources []interfaces.IDataSource, log *logger.Logger) *MultiSourceManager {
	m := &MultiSourceManager{
		Sources: make(map[string]interfaces.IDataSource),
		Logger:  log,
	}
	for _, s := range sources {
		m.Sources[s.Name()] = s
	}
	return m
}

// -----------------------------------------------------------------------------

// NewSourceFromConfig builds the trade source named by ingestion.provider.
func NewSourceFromConfig(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) (interfaces.IDataSource, error) {
	switch cfg.Ingestion.Provider {
	case "binance_rest":
		return binance.NewRESTTradeSource(cfg, netMgr, log), nil
	case "binance_ws":
		return binance.NewWSTradeSource(cfg, log), nil
	default:
		return nil, fmt.Errorf("unsupported ingestion provider: %s", cfg.Ingestion.Provider)
	}
}

// -----------------------------------------------------------------------------

// AddSource registers a source and starts it if the manager is running.
func (m *MultiSourceManager) AddSource(source interfaces.IDataSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := source.Name()
	if _, exists := m.Sources[name]; exists {
		return fmt.Errorf("source %s already exists", name)
	}

	m.Sources[name] = source
	m.Logger.Info("Added source: %s", name)

	if m.outputChan != nil && m.ctx != nil {
		if err := source.Start(m.ctx, m.outputChan, m.wg); err != nil {
			return fmt.Errorf("failed to start source %s: %v", name, err)
		}
		m.Logger.Info("Started source: %s", name)
	}
	return nil
}

// -----------------------------------------------------------------------------

// RemoveSource stops and removes a source.
func (m *MultiSourceManager) RemoveSource(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	source, exists := m.Sources[name]
	if !exists {
		return fmt.Errorf("source %s not found", name)
	}
	if m.ctx != nil {
		if err := source.Stop(); err != nil {
			m.Logger.Error("Error stopping source %s: %v", name, err)
		}
	}

	delete(m.Sources, name)
	m.Logger.Info("Removed source: %s", name)
	return nil
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) GetSource(name string) (interfaces.IDataSource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	source, exists := m.Sources[name]
	if !exists {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return source, nil
}

// GetAllSources returns the sources ordered by name.
func (m *MultiSourceManager) GetAllSources() []interfaces.IDataSource {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]interfaces.IDataSource, 0, len(m.Sources))
	for _, s := range m.Sources {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// -----------------------------------------------------------------------------

// Start starts every source. Each source registers itself on wg.
func (m *MultiSourceManager) Start(parentCtx context.Context, outputChan chan<- []models.MTick, wg *sync.WaitGroup) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		return fmt.Errorf("MultiSourceManager is already running")
	}

	ctx, cancel := context.WithCancel(parentCtx)
	m.ctx = ctx
	m.cancelFunc = cancel
	m.outputChan = outputChan
	m.wg = wg

	for _, src := range m.Sources {
		if err := src.Start(m.ctx, m.outputChan, m.wg); err != nil {
			m.Logger.Error("Failed to start source %s: %v", src.Name(), err)
			cancel()
			m.ctx = nil
			m.cancelFunc = nil
			return err
		}
	}
	return nil
}

// Stop cancels the shared context; sources exit on their own.
func (m *MultiSourceManager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return nil
	}

	m.Logger.Info("Stopping MultiSourceManager...")
	if m.cancelFunc != nil {
		m.cancelFunc()
	}
	m.cancelFunc = nil
	m.ctx = nil
	m.Logger.Info("MultiSourceManager Stopped.")
	return nil
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) Name() string {
	return "MultiSourceManager"
}

// IsRealTime reports whether every source pushes trades as they happen.
func (m *MultiSourceManager) IsRealTime() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.Sources) == 0 {
		return false
	}
	for _, s := range m.Sources {
		if !s.IsRealTime() {
			return false
		}
	}
	return true
}

// -----------------------------------------------------------------------------

func (m *MultiSourceManager) UpdateSymbols(symbols []string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, src := range m.Sources {
		if err := src.UpdateSymbols(symbols); err != nil {
			m.Logger.Error("Failed to update symbols for %s: %v", src.Name(), err)
			return err
		}
	}
	return nil
}
