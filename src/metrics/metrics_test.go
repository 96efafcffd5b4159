package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistered(t *testing.T) {
	TicksIngested.WithLabelValues("BTCUSDT").Inc()
	PipelineRuns.WithLabelValues(OutcomeOK).Inc()
	PipelineDuration.Observe(0.01)
	StoreQueryDuration.WithLabelValues("sqlite").Observe(0.002)
	WSClients.Set(1)

	mfs, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, want := range []string{
		"ticks_ingested_total",
		"pipeline_runs_total",
		"pipeline_duration_seconds",
		"store_query_duration_seconds",
		"ws_clients",
	} {
		assert.True(t, names[want], "%s not registered", want)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	PipelineRuns.WithLabelValues(OutcomeOK).Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, string(body), "pipeline_runs_total")
}
