// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Market data metrics
	HistoricalFetches     *prometheus.CounterVec
	HistoricalFetchErrors *prometheus.CounterVec
	FetchLatency          *prometheus.HistogramVec

	// Risk engine metrics
	AnalysesStarted    prometheus.Counter
	AnalysesCompleted  prometheus.Counter
	AnalysesFailed     *prometheus.CounterVec
	SimulationTrials   prometheus.Counter
	SimulationDuration prometheus.Histogram
	AnalysisDuration   prometheus.Histogram

	// Sentiment metrics
	SentimentRequests  *prometheus.CounterVec
	SentimentFallbacks prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "portfolio_risk_lab"
	}

	return &Metrics{
		// Market data metrics
		HistoricalFetches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "historical_fetches_total",
			Help:      "Total number of historical series fetches by symbol",
		}, []string{"symbol"}),
		HistoricalFetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "historical_fetch_errors_total",
			Help:      "Total number of failed historical series fetches by symbol",
		}, []string{"symbol"}),
		FetchLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "marketdata",
			Name:      "fetch_latency_seconds",
			Help:      "Historical series fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),

		// Risk engine metrics
		AnalysesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "analyses_started_total",
			Help:      "Total number of risk analyses started",
		}),
		AnalysesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "analyses_completed_total",
			Help:      "Total number of risk analyses completed successfully",
		}),
		AnalysesFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "analyses_failed_total",
			Help:      "Total number of failed risk analyses by error kind",
		}, []string{"kind"}),
		SimulationTrials: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "simulation_trials_total",
			Help:      "Total number of Monte Carlo trials executed",
		}),
		SimulationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "simulation_duration_seconds",
			Help:      "Monte Carlo simulation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}),
		AnalysisDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "risk",
			Name:      "analysis_duration_seconds",
			Help:      "End-to-end risk analysis duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),

		// Sentiment metrics
		SentimentRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sentiment",
			Name:      "requests_total",
			Help:      "Total number of sentiment requests by source and status",
		}, []string{"source", "status"}),
		SentimentFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sentiment",
			Name:      "fallbacks_total",
			Help:      "Total number of requests answered by the fallback tier",
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
