package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline outcomes reported by PipelineRuns. Failed runs use the error kind.
const OutcomeOK = "ok"

var (
	TicksIngested = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_ingested_total", Help: "Trades persisted by the ingestor"},
		[]string{"symbol"},
	)
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pipeline_runs_total", Help: "Pair analytics runs by outcome"},
		[]string{"outcome"},
	)
	PipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_duration_seconds",
			Help:    "Wall time of one pair analytics run",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
	StoreQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_query_duration_seconds",
			Help:    "Tick store snapshot read latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)
	WSClients = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "ws_clients", Help: "Connected websocket clients"},
	)
)

func init() {
	prometheus.MustRegister(TicksIngested, PipelineRuns, PipelineDuration, StoreQueryDuration, WSClients)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
