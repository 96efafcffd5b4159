package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"pair-analytics/src/analysis"
	"pair-analytics/src/interfaces"
	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

const defaultRefreshTick = time.Second

// PairRunner runs one pipeline pass.
type PairRunner interface {
	Run(ctx context.Context, req analysis.PairRequest) (*models.MPairAnalytics, error)
}

type subscription struct {
	key           string
	req           analysis.PairRequest
	interval      time.Duration
	clients       int
	nextRun       time.Time
	lastDirection string
}

// Refresher owns the refresh cadence: it re-runs the pipeline for every
// active subscription, caches the serialized result for one interval and
// publishes signal changes.
type Refresher struct {
	Runner    PairRunner
	Cache     interfaces.IResultCache
	Publisher interfaces.ISignalPublisher
	Refresh   models.MRefreshConfig
	Logger    *logger.Logger
	Tick      time.Duration
	Now       func() time.Time

	push func(msg models.MPushMessage)
	mu   sync.Mutex
	subs map[string]*subscription
}

// -----------------------------------------------------------------------------

func NewRefresher(
	runner PairRunner,
	cache interfaces.IResultCache,
	pub interfaces.ISignalPublisher,
	refresh models.MRefreshConfig,
	log *logger.Logger,
) *Refresher {
	return &Refresher{
		Runner:    runner,
		Cache:     cache,
		Publisher: pub,
		Refresh:   refresh,
		Logger:    log,
		Tick:      defaultRefreshTick,
		Now:       time.Now,
		subs:      make(map[string]*subscription),
	}
}

// -----------------------------------------------------------------------------

// Interval clamps a requested cadence to the configured bounds. Zero means
// the default cadence.
func (r *Refresher) Interval(seconds int) time.Duration {
	if seconds <= 0 {
		seconds = r.Refresh.DefaultSeconds
	}
	if r.Refresh.MinSeconds > 0 && seconds < r.Refresh.MinSeconds {
		seconds = r.Refresh.MinSeconds
	}
	if r.Refresh.MaxSeconds > 0 && seconds > r.Refresh.MaxSeconds {
		seconds = r.Refresh.MaxSeconds
	}
	if seconds <= 0 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

// -----------------------------------------------------------------------------

// RequestKey identifies a request for caching and fan-out. The timeframe
// must already be canonical.
func RequestKey(req analysis.PairRequest) string {
	return fmt.Sprintf("%s|%s|%s|z%d|c%d|s%t|l%d",
		strings.ToUpper(strings.TrimSpace(req.SymbolX)),
		strings.ToUpper(strings.TrimSpace(req.SymbolY)),
		req.Timeframe, req.ZWindow, req.CorrWindow, req.WithStationarity, int64(req.Lookback/time.Second))
}

// canonical validates the timeframe up front so bad requests never reach the
// cache.
func canonical(req analysis.PairRequest) (analysis.PairRequest, error) {
	tf, err := analysis.CanonicalTimeframe(req.Timeframe)
	if err != nil {
		return req, err
	}
	req.Timeframe = tf
	return req, nil
}

// -----------------------------------------------------------------------------

// Compute returns the JSON result for req, from the cache when fresh.
func (r *Refresher) Compute(ctx context.Context, req analysis.PairRequest, ttl time.Duration) ([]byte, models.MSignal, error) {
	req, err := canonical(req)
	if err != nil {
		return nil, models.MSignal{}, err
	}
	key := RequestKey(req)

	if r.Cache != nil {
		if data, ok, err := r.Cache.Get(ctx, key); err != nil {
			r.Logger.Warning("Cache read failed for %s: %v", key, err)
		} else if ok {
			var head struct {
				Signal models.MSignal `json:"signal"`
			}
			if err := json.Unmarshal(data, &head); err == nil {
				return data, head.Signal, nil
			}
		}
	}

	result, err := r.Runner.Run(ctx, req)
	if err != nil {
		return nil, models.MSignal{}, err
	}
	data, err := json.Marshal(result)
	if err != nil {
		return nil, models.MSignal{}, fmt.Errorf("failed to encode result: %w", err)
	}

	if r.Cache != nil {
		if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
			r.Logger.Warning("Cache write failed for %s: %v", key, err)
		}
	}
	return data, result.Signal, nil
}

// -----------------------------------------------------------------------------

// Subscribe registers one more client for req and returns its key. The first
// refresh happens on the next tick.
func (r *Refresher) Subscribe(req analysis.PairRequest, refreshSeconds int) (string, error) {
	req, err := canonical(req)
	if err != nil {
		return "", err
	}
	key := RequestKey(req)
	interval := r.Interval(refreshSeconds)

	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[key]
	if !ok {
		sub = &subscription{key: key, req: req, interval: interval}
		r.subs[key] = sub
	}
	if interval < sub.interval {
		sub.interval = interval
	}
	sub.clients++
	sub.nextRun = time.Time{}
	return key, nil
}

// Unsubscribe drops one client from key.
func (r *Refresher) Unsubscribe(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[key]
	if !ok {
		return
	}
	sub.clients--
	if sub.clients <= 0 {
		delete(r.subs, key)
	}
}

// Active returns the number of live subscriptions.
func (r *Refresher) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// -----------------------------------------------------------------------------

// Run refreshes due subscriptions until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshDue(ctx)
		}
	}
}

func (r *Refresher) refreshDue(ctx context.Context) {
	now := r.Now()

	r.mu.Lock()
	var due []subscription
	for _, sub := range r.subs {
		if !now.Before(sub.nextRun) {
			sub.nextRun = now.Add(sub.interval)
			due = append(due, *sub)
		}
	}
	r.mu.Unlock()

	for _, sub := range due {
		r.refreshOne(ctx, sub)
	}
}

func (r *Refresher) refreshOne(ctx context.Context, sub subscription) {
	data, signal, err := r.Compute(ctx, sub.req, sub.interval)
	if err != nil {
		r.emit(models.MPushMessage{Type: "ERROR", Key: sub.key, Error: errorBody(err)})
		return
	}
	r.emit(models.MPushMessage{Type: "RESULT", Key: sub.key, Payload: json.RawMessage(data)})

	r.mu.Lock()
	live, ok := r.subs[sub.key]
	changed := ok && live.lastDirection != signal.Direction
	if changed {
		live.lastDirection = signal.Direction
	}
	r.mu.Unlock()

	if changed && r.Publisher != nil {
		if err := r.Publisher.Publish(ctx, sub.req.SymbolX, sub.req.SymbolY, signal); err != nil {
			r.Logger.Warning("Signal publish failed for %s: %v", sub.key, err)
		}
	}
}

func (r *Refresher) emit(msg models.MPushMessage) {
	if r.push != nil {
		r.push(msg)
	}
}
