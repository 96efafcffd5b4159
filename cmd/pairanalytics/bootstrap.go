package main

import (
	"context"
	"fmt"
	"sync"

	"pair-analytics/src/config"
	datasource "pair-analytics/src/data_source"
	"pair-analytics/src/ingestion"
	"pair-analytics/src/interfaces"
	"pair-analytics/src/logger"
	"pair-analytics/src/models"
	"pair-analytics/src/network"
	"pair-analytics/src/storage"
)

// bootstrap loads the config, builds the root logger and opens the store.
func bootstrap(ctx context.Context) (*config.Config, *logger.Logger, interfaces.ITickStore, error) {
	cfg, err := config.NewConfig(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("error loading config: %w", err)
	}

	appLogger := logger.NewLogger(cfg.MConfig, cfg.Name)

	store, err := storage.NewTickStore(cfg.MConfig, appLogger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to init store: %w", err)
	}
	if err := store.Initialize(ctx); err != nil {
		store.Close()
		return nil, nil, nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return cfg, appLogger, store, nil
}

// -----------------------------------------------------------------------------

// startIngestion wires source -> channel -> ingestor and returns the source
// manager plus a wait function that blocks until everything has stopped.
func startIngestion(
	ctx context.Context,
	cfg *models.MConfig,
	store interfaces.ITickStore,
	appLogger *logger.Logger,
) (*datasource.MultiSourceManager, func(), error) {
	netMgr := network.NewAsyncNetworkManager(cfg, appLogger.Named("Network"))

	source, err := datasource.NewSourceFromConfig(cfg, netMgr, appLogger)
	if err != nil {
		return nil, nil, err
	}
	manager := datasource.NewMultiSourceManager([]interfaces.IDataSource{source}, appLogger.Named("Sources"))

	updates := make(chan []models.MTick, 100)
	sourcesWg := &sync.WaitGroup{}
	if err := manager.Start(ctx, updates, sourcesWg); err != nil {
		return nil, nil, fmt.Errorf("failed to start sources: %w", err)
	}

	ingestor := ingestion.NewIngestor(cfg, store, appLogger)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ingestor.Run(ctx, updates)
	}()

	wait := func() {
		manager.Stop()
		sourcesWg.Wait()
		close(updates)
		<-done
	}
	return manager, wait, nil
}
