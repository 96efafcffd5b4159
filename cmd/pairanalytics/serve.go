package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pair-analytics/src/analysis"
	"pair-analytics/src/cache"
	datasource "pair-analytics/src/data_source"
	"pair-analytics/src/grpc_control"
	"pair-analytics/src/publisher"
	"pair-analytics/src/server"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the analytics HTTP/WS server and gRPC health (plus ingestion when enabled)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, appLogger, store, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			var sources *datasource.MultiSourceManager
			if cfg.Ingestion.Enabled {
				mgr, wait, err := startIngestion(ctx, cfg.MConfig, store, appLogger)
				if err != nil {
					return err
				}
				defer wait()
				sources = mgr
			}

			pipeline, err := analysis.NewPairAnalyticsPipeline(analysis.NewPipelineConfig(cfg.MConfig, store), appLogger.Named("Pipeline"))
			if err != nil {
				return err
			}

			resultCache := cache.NewResultCache(ctx, cfg.MConfig, appLogger.Named("Cache"))
			defer resultCache.Close()
			signals := publisher.NewSignalPublisher(cfg.MConfig, appLogger.Named("Signals"))
			defer signals.Close()

			control := grpc_control.NewControlService(cfg, sources, store, configPath, appLogger)
			srv := server.NewAnalyticsServer(cfg.MConfig, pipeline, resultCache, signals, control, appLogger)

			g, gctx := errgroup.WithContext(ctx)
			if cfg.GrpcPort != 0 {
				g.Go(func() error {
					return control.Serve(gctx, fmt.Sprintf("%s:%d", cfg.Host, cfg.GrpcPort))
				})
			}
			g.Go(srv.Start)
			g.Go(func() error {
				<-gctx.Done()
				appLogger.Info("Shutting down...")
				return srv.Stop()
			})
			return g.Wait()
		},
	}
}
