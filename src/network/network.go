package network

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"pair-analytics/src/helpers"
	"pair-analytics/src/logger"
	"pair-analytics/src/models"
)

const userAgent = "pair-analytics/1.0"

// StatusError is a non-200 answer from the remote API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("bad status %d: %s", e.StatusCode, e.Body)
}

// -----------------------------------------------------------------------------

// AsyncNetworkManager issues rate limited GET requests behind a circuit
// breaker, retrying transient failures with exponential backoff.
type AsyncNetworkManager struct {
	Client     *http.Client
	Limiter    *rate.Limiter
	Breaker    *gobreaker.CircuitBreaker
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *logger.Logger
}

// -----------------------------------------------------------------------------

func NewAsyncNetworkManager(cfg *models.MConfig, log *logger.Logger) *AsyncNetworkManager {
	ing := cfg.Ingestion

	rps := rate.Limit(ing.RequestsPerSecond)
	if ing.RequestsPerSecond <= 0 {
		rps = rate.Inf
	}
	burst := int(ing.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}

	settings := gobreaker.Settings{
		Name:     "binance-rest",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warning("Circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &AsyncNetworkManager{
		Client:     &http.Client{Timeout: time.Duration(ing.RequestTimeoutSeconds) * time.Second},
		Limiter:    rate.NewLimiter(rps, burst),
		Breaker:    gobreaker.NewCircuitBreaker(settings),
		MaxRetries: ing.MaxRetries,
		BaseDelay:  500 * time.Millisecond,
		Logger:     log,
	}
}

// -----------------------------------------------------------------------------

// Get performs a GET request with retries. An open breaker fails fast.
func (nm *AsyncNetworkManager) Get(ctx context.Context, urlStr string, params map[string]string) ([]byte, error) {
	reqURL, err := url.Parse(urlStr)
	if err != nil {
		return nil, err
	}

	q := reqURL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	reqURL.RawQuery = q.Encode()
	finalURL := reqURL.String()

	return helpers.RetryWithBackoff(ctx, "GET "+reqURL.Path, nm.MaxRetries, nm.BaseDelay, nm.Logger,
		func(ctx context.Context) ([]byte, error) {
			body, err := nm.Breaker.Execute(func() (interface{}, error) {
				return nm.do(ctx, finalURL)
			})
			if err != nil {
				return nil, err
			}
			return body.([]byte), nil
		})
}

// -----------------------------------------------------------------------------

func (nm *AsyncNetworkManager) do(ctx context.Context, finalURL string) ([]byte, error) {
	if err := nm.Limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, finalURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := nm.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		if len(body) > 256 {
			body = body[:256]
		}
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
