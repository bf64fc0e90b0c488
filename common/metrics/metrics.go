// Package metrics registers the Prometheus collectors shared by the server
// and the worker. The server mounts Handler on its router; the worker runs a
// bare listener for it.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "deflect"

var (
	PipelineOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "outcomes_total",
		Help:      "Deflection pipeline runs by terminal outcome",
	}, []string{"outcome"})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pipeline",
		Name:      "duration_seconds",
		Help:      "Wall time of one deflection pipeline run",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
	})

	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "generator",
		Name:      "duration_seconds",
		Help:      "LLM call latency by stage",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
	}, []string{"stage"})

	GenerationTokens = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "generator",
		Name:      "tokens_total",
		Help:      "Tokens consumed by stage",
	}, []string{"stage"})

	AnalysisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "runs_total",
		Help:      "Pattern analysis runs by final status",
	}, []string{"status"})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "Wall time of one pattern analysis run",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
	})

	InsightsBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "insights_total",
		Help:      "Deflection insights produced",
	})

	EmbeddingFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "analysis",
		Name:      "embedding_fallbacks_total",
		Help:      "Tickets clustered with a zero vector after an embedding failure",
	})

	QueueMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "queue",
		Name:      "messages_total",
		Help:      "Queue messages handled by task type and result",
	}, []string{"task_type", "result"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method, route template and status",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route template",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	HTTPPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "panics_total",
		Help:      "Handler panics recovered by route template",
	}, []string{"route"})
)

// ObserveSince records the seconds elapsed since start.
func ObserveSince(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
