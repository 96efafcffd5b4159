package analysis

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pair-analytics/src/analysis/core"
	"pair-analytics/src/helpers"
	"pair-analytics/src/interfaces"
	"pair-analytics/src/logger"
	"pair-analytics/src/metrics"
	"pair-analytics/src/models"
)

// Defaults applied when a request or config leaves a window unset.
const (
	DefaultZWindow    = 30
	DefaultCorrWindow = 30
)

// PipelineConfig is everything one pipeline needs. Several pipelines with
// different stores may coexist.
type PipelineConfig struct {
	Store              interfaces.ITickStore
	StoreBackend       string
	DefaultZWindow     int
	DefaultCorrWindow  int
	EntryZScore        float64
	MinStationarityObs int
	ADFMaxLag          int
	QueryTimeout       time.Duration
	Now                func() time.Time
}

// NewPipelineConfig maps the application config onto a PipelineConfig.
func NewPipelineConfig(cfg *models.MConfig, store interfaces.ITickStore) PipelineConfig {
	return PipelineConfig{
		Store:              store,
		StoreBackend:       cfg.Storage.DBType,
		DefaultZWindow:     cfg.Analytics.ZWindow,
		DefaultCorrWindow:  cfg.Analytics.CorrWindow,
		EntryZScore:        cfg.Analytics.EntryZScore,
		MinStationarityObs: cfg.Analytics.MinStationarityObs,
		ADFMaxLag:          cfg.Analytics.ADFMaxLag,
		QueryTimeout:       time.Duration(cfg.Storage.QueryTimeoutSeconds) * time.Second,
	}
}

// PairRequest selects the pair and parameters of one run. Zero windows take
// the pipeline defaults, a zero Lookback reads the whole history.
type PairRequest struct {
	SymbolX          string
	SymbolY          string
	Timeframe        string
	ZWindow          int
	CorrWindow       int
	WithStationarity bool
	Lookback         time.Duration
}

// PairAnalyticsPipeline turns two symbols' ticks into spread analytics. It
// holds no per-run state and is safe for concurrent use.
type PairAnalyticsPipeline struct {
	cfg       PipelineConfig
	resampler TimeSeriesResampler
	Logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewPairAnalyticsPipeline(cfg PipelineConfig, log *logger.Logger) (*PairAnalyticsPipeline, error) {
	if cfg.Store == nil {
		return nil, helpers.NewError(helpers.KindInvalidParameter, "pipeline", "tick store is required")
	}
	if cfg.DefaultZWindow == 0 {
		cfg.DefaultZWindow = DefaultZWindow
	}
	if cfg.DefaultCorrWindow == 0 {
		cfg.DefaultCorrWindow = DefaultCorrWindow
	}
	if cfg.EntryZScore <= 0 {
		cfg.EntryZScore = DefaultEntryZScore
	}
	if cfg.MinStationarityObs <= 0 {
		cfg.MinStationarityObs = core.DefaultMinADFObservations
	}
	if cfg.StoreBackend == "" {
		cfg.StoreBackend = "unknown"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &PairAnalyticsPipeline{cfg: cfg, Logger: log}, nil
}

// -----------------------------------------------------------------------------

// Run performs one full pass: fetch, resample, align, fit, spread, rolling
// statistics and, when requested, the stationarity test. Any stage failure
// ends the run and is returned as is.
func (p *PairAnalyticsPipeline) Run(ctx context.Context, req PairRequest) (*models.MPairAnalytics, error) {
	runID := uuid.NewString()
	started := time.Now()

	result, err := p.run(ctx, runID, req)

	metrics.PipelineDuration.Observe(time.Since(started).Seconds())
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = string(helpers.KindOf(err))
	}
	metrics.PipelineRuns.WithLabelValues(outcome).Inc()

	zl := p.Logger.Zerolog()
	if err != nil {
		zl.Warn().Str("run_id", runID).Str("symbol_x", req.SymbolX).Str("symbol_y", req.SymbolY).
			Str("kind", outcome).Err(err).Msg("pair analytics failed")
		return nil, err
	}
	zl.Debug().Str("run_id", runID).Str("symbol_x", req.SymbolX).Str("symbol_y", req.SymbolY).
		Int("points", len(result.Series)).Dur("elapsed", time.Since(started)).Msg("pair analytics done")
	return result, nil
}

// -----------------------------------------------------------------------------

func (p *PairAnalyticsPipeline) run(ctx context.Context, runID string, req PairRequest) (*models.MPairAnalytics, error) {
	req, width, err := p.normalize(req)
	if err != nil {
		return nil, err
	}

	// 1. Snapshot read
	ticks, err := p.fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	// 2. Resample
	barsX, err := p.resampler.Resample(ticks[req.SymbolX], width)
	if err != nil {
		return nil, err
	}
	barsY, err := p.resampler.Resample(ticks[req.SymbolY], width)
	if err != nil {
		return nil, err
	}

	// 3. Align
	series, err := alignOrFail(req, barsX, barsY)
	if err != nil {
		return nil, err
	}

	// 4-5. Hedge ratio and spread
	hedge, err := EstimateHedgeRatio(series)
	if err != nil {
		return nil, err
	}
	spread := ComputeSpread(series, hedge)

	// 6-7. Independent statistics
	var (
		zscore, corr models.MRollingSeries
		stationarity *models.MStationarityResult
		g            errgroup.Group
	)
	g.Go(func() error {
		var err error
		zscore, err = RollingZScore(spread, req.ZWindow)
		return err
	})
	g.Go(func() error {
		var err error
		corr, err = RollingCorrelation(series.Xs(), series.Ys(), req.CorrWindow)
		return err
	})
	if req.WithStationarity {
		g.Go(func() error {
			var err error
			stationarity, err = CheckStationarity(spread, p.cfg.MinStationarityObs, p.cfg.ADFMaxLag)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// 8. Bundle
	return &models.MPairAnalytics{
		RunID:        runID,
		SymbolX:      req.SymbolX,
		SymbolY:      req.SymbolY,
		Timeframe:    req.Timeframe,
		BucketWidth:  width,
		BarsX:        len(barsX),
		BarsY:        len(barsY),
		Series:       series,
		Hedge:        hedge,
		Spread:       spread,
		ZScore:       zscore,
		Correlation:  corr,
		Stationarity: stationarity,
		Signal:       ClassifySignal(zscore, corr, spread, p.cfg.EntryZScore),
		GeneratedAt:  p.cfg.Now().UTC(),
	}, nil
}

// -----------------------------------------------------------------------------

// normalize validates the request before anything touches the store.
func (p *PairAnalyticsPipeline) normalize(req PairRequest) (PairRequest, time.Duration, error) {
	width, err := ParseTimeframe(req.Timeframe)
	if err != nil {
		return req, 0, err
	}
	if label, err := CanonicalTimeframe(req.Timeframe); err == nil {
		req.Timeframe = label
	}

	req.SymbolX = strings.ToUpper(strings.TrimSpace(req.SymbolX))
	req.SymbolY = strings.ToUpper(strings.TrimSpace(req.SymbolY))
	if req.SymbolX == "" || req.SymbolY == "" {
		return req, 0, helpers.NewError(helpers.KindInvalidParameter, "request", "both symbols are required")
	}
	if req.SymbolX == req.SymbolY {
		return req, 0, helpers.NewError(helpers.KindInvalidParameter, "request",
			"symbols must differ, got %s twice", req.SymbolX)
	}

	if req.ZWindow == 0 {
		req.ZWindow = p.cfg.DefaultZWindow
	}
	if req.CorrWindow == 0 {
		req.CorrWindow = p.cfg.DefaultCorrWindow
	}
	if err := checkWindow(req.ZWindow); err != nil {
		return req, 0, err
	}
	if err := checkWindow(req.CorrWindow); err != nil {
		return req, 0, err
	}
	if req.Lookback < 0 {
		return req, 0, helpers.NewError(helpers.KindInvalidParameter, "request",
			"lookback must not be negative, got %s", req.Lookback)
	}

	return req, width, nil
}

// -----------------------------------------------------------------------------

func (p *PairAnalyticsPipeline) fetch(ctx context.Context, req PairRequest) (map[string][]models.MTick, error) {
	if p.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.QueryTimeout)
		defer cancel()
	}

	query := models.MTickQuery{Symbols: []string{req.SymbolX, req.SymbolY}}
	if req.Lookback > 0 {
		query.From = p.cfg.Now().Add(-req.Lookback)
	}

	started := time.Now()
	ticks, err := p.cfg.Store.QueryTicks(ctx, query)
	metrics.StoreQueryDuration.WithLabelValues(p.cfg.StoreBackend).Observe(time.Since(started).Seconds())
	if err != nil {
		if helpers.KindOf(err) == helpers.KindStoreUnavailable {
			return nil, err
		}
		return nil, helpers.WrapError(helpers.KindStoreUnavailable, "fetch", err,
			"read ticks for %s/%s", req.SymbolX, req.SymbolY)
	}
	return ticks, nil
}

// -----------------------------------------------------------------------------

func alignOrFail(req PairRequest, barsX, barsY []models.MBar) (models.MAlignedSeries, error) {
	if len(barsX) == 0 || len(barsY) == 0 {
		return nil, helpers.NewError(helpers.KindInsufficientData, "align",
			"no trades for %s (%d bars) or %s (%d bars)", req.SymbolX, len(barsX), req.SymbolY, len(barsY))
	}

	series := Align(barsX, barsY)
	if len(series) == 0 {
		return nil, helpers.NewError(helpers.KindMisalignedSeries, "align",
			"%s and %s share no %s buckets", req.SymbolX, req.SymbolY, req.Timeframe)
	}
	return series, nil
}
