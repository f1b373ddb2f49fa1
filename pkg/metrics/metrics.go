// Package metrics declares the Prometheus collectors exported on /metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Import metrics
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costlens_imports_total",
			Help: "Total number of billing file imports",
		},
		[]string{"provider", "outcome"}, // outcome: success/duplicate/error
	)

	ImportedRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costlens_imported_rows_total",
			Help: "Canonical cost rows persisted by imports",
		},
		[]string{"provider"},
	)

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costlens_cache_hits_total",
			Help: "Memoized computation cache hits",
		},
		[]string{"namespace"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costlens_cache_misses_total",
			Help: "Memoized computation cache misses",
		},
		[]string{"namespace"},
	)

	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "costlens_cache_entries",
			Help: "Entries currently held by the cache",
		},
	)

	// LLM metrics
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costlens_llm_requests_total",
			Help: "Total number of text generation requests",
		},
		[]string{"model", "status"}, // status: success/error/fallback
	)

	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "costlens_llm_request_duration_seconds",
			Help:    "Text generation request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
		[]string{"model"},
	)

	// Analytics metrics
	AnomaliesDetected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costlens_anomalies_detected_total",
			Help: "Anomalies flagged by detection runs",
		},
		[]string{"kind"}, // kind: service/mom
	)

	ScheduledJobRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "costlens_scheduled_job_runs_total",
			Help: "Scheduled job executions",
		},
		[]string{"kind", "status"},
	)

	// HTTP metrics
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "costlens_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
