package grpc_control

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"pair-analytics/src/config"
	datasource "pair-analytics/src/data_source"
	"pair-analytics/src/interfaces"
	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

// StoreService is the health service name tracking the tick store.
const StoreService = "pairanalytics.TickStore"

const defaultHealthInterval = 10 * time.Second

// ControlService owns the runtime controls (symbols, sources) and publishes
// component health over the standard gRPC health protocol.
type ControlService struct {
	Config         *config.Config
	DataSource     *datasource.MultiSourceManager
	Store          interfaces.ITickStore
	ConfigPath     string
	Logger         *logger.Logger
	Health         *health.Server
	HealthInterval time.Duration
	mu             sync.Mutex
}

// NewControlService creates a new instance of ControlService
func NewControlService(
	cfg *config.Config,
	ds *datasource.MultiSourceManager,
	store interfaces.ITickStore,
	cfgPath string,
	log *logger.Logger,
) *ControlService {
	return &ControlService{
		Config:         cfg,
		DataSource:     ds,
		Store:          store,
		ConfigPath:     cfgPath,
		Logger:         log.Named("Control"),
		Health:         health.NewServer(),
		HealthInterval: defaultHealthInterval,
	}
}

// -----------------------------------------------------------------------------

// Symbols returns a copy of the followed symbols.
func (s *ControlService) Symbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Config.Ingestion.Symbols...)
}

// ListSources reports every registered ingestion source.
func (s *ControlService) ListSources() []models.MSourceStatus {
	if s.DataSource == nil {
		return nil
	}
	symbols := s.Symbols()

	var out []models.MSourceStatus
	for _, src := range s.DataSource.GetAllSources() {
		out = append(out, models.MSourceStatus{
			Name:       src.Name(),
			IsRealTime: src.IsRealTime(),
			Symbols:    symbols,
		})
	}
	return out
}

// -----------------------------------------------------------------------------

// UpdateSymbols replaces the followed symbols on every source and persists
// the list when a config path is known.
func (s *ControlService) UpdateSymbols(symbols []string) error {
	var cleaned []string
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym != "" {
			cleaned = append(cleaned, sym)
		}
	}
	if len(cleaned) == 0 {
		return status.Error(codes.InvalidArgument, "symbols list cannot be empty")
	}

	if s.DataSource != nil {
		if err := s.DataSource.UpdateSymbols(cleaned); err != nil {
			s.Logger.Error("Failed to update running sources: %v", err)
			return status.Errorf(codes.Internal, "failed to update running sources: %v", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Config.Ingestion.Symbols = cleaned
	if s.ConfigPath != "" {
		if err := s.Config.Save(s.ConfigPath); err != nil {
			s.Logger.Warning("Symbols updated but not persisted: %v", err)
		}
	}

	s.Logger.Info("UpdateSymbols success. Count: %d", len(cleaned))
	return nil
}

// -----------------------------------------------------------------------------

// CheckHealth pings the store and updates the health statuses.
func (s *ControlService) CheckHealth(ctx context.Context) models.MHealthStatus {
	st := models.MHealthStatus{
		Status:  "ok",
		Store:   "ok",
		Backend: s.Config.Storage.DBType,
	}
	if s.DataSource != nil {
		st.Sources = len(s.DataSource.GetAllSources())
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	serving := healthpb.HealthCheckResponse_SERVING
	if err := s.Store.Ping(pingCtx); err != nil {
		s.Logger.Warning("Store ping failed: %v", err)
		st.Status = "degraded"
		st.Store = err.Error()
		serving = healthpb.HealthCheckResponse_NOT_SERVING
	}

	s.Health.SetServingStatus(StoreService, serving)
	s.Health.SetServingStatus("", serving)
	return st
}

// -----------------------------------------------------------------------------

// Serve runs the gRPC server on addr until ctx is done.
func (s *ControlService) Serve(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.ServeListener(ctx, lis)
}

// ServeListener is Serve on an existing listener.
func (s *ControlService) ServeListener(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, s.Health)

	s.CheckHealth(ctx)
	go s.healthLoop(ctx)

	go func() {
		<-ctx.Done()
		s.Health.Shutdown()
		srv.GracefulStop()
	}()

	s.Logger.Info("gRPC control listening on %s", lis.Addr())
	if err := srv.Serve(lis); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (s *ControlService) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(s.HealthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CheckHealth(ctx)
		}
	}
}
