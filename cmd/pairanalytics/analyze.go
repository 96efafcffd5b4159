package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pair-analytics/src/analysis"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		req      analysis.PairRequest
		lookback time.Duration
		csvPath  string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run one pair analytics pass and print the result",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			cfg, appLogger, store, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			def := cfg.Analytics
			if req.SymbolX == "" {
				req.SymbolX = def.DefaultSymbolX
			}
			if req.SymbolY == "" {
				req.SymbolY = def.DefaultSymbolY
			}
			if req.Timeframe == "" {
				req.Timeframe = def.DefaultTimeframe
			}
			req.Lookback = lookback

			pipeline, err := analysis.NewPairAnalyticsPipeline(analysis.NewPipelineConfig(cfg.MConfig, store), appLogger.Named("Pipeline"))
			if err != nil {
				return err
			}
			result, err := pipeline.Run(ctx, req)
			if err != nil {
				return err
			}

			if csvPath != "" {
				return writeCSVFile(csvPath, func(w io.Writer) error { return analysis.WriteCSV(w, result) })
			}

			out := cmd.OutOrStdout()
			var data []byte
			if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
				data, err = json.MarshalIndent(result, "", "  ")
			} else {
				data, err = json.Marshal(result)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(data))
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.SymbolX, "x", "", "first symbol (default from config)")
	f.StringVar(&req.SymbolY, "y", "", "second symbol (default from config)")
	f.StringVar(&req.Timeframe, "timeframe", "", "bar timeframe, e.g. 1m, 5 Minutes, 1h")
	f.IntVar(&req.ZWindow, "z-window", 0, "rolling z-score window in bars")
	f.IntVar(&req.CorrWindow, "corr-window", 0, "rolling correlation window in bars")
	f.BoolVar(&req.WithStationarity, "stationarity", false, "run the ADF test on the spread")
	f.DurationVar(&lookback, "lookback", 0, "only use ticks newer than this (0 = all)")
	f.StringVar(&csvPath, "csv", "", "write timestamp,price_x,price_y,spread,zscore rows to this file")
	return cmd
}

func writeCSVFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
