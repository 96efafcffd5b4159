package main

import (
	"github.com/spf13/cobra"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest",
		Short: "Stream trades from the configured provider into the tick store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, appLogger, store, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			_, wait, err := startIngestion(ctx, cfg.MConfig, store, appLogger)
			if err != nil {
				return err
			}

			appLogger.Info("Ingesting %v via %s", cfg.Ingestion.Symbols, cfg.Ingestion.Provider)
			<-ctx.Done()
			appLogger.Info("Shutting down...")
			wait()
			return nil
		},
	}
}
