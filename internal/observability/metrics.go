package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace defines the global prefix for all metrics (e.g., skuld_...).
const namespace = "skuld"

// lowLatencyBuckets defines custom buckets for hot-path operations.
// Standard buckets are too coarse (starting at 5ms), so we add 1ms and 2ms
// resolution. Range: 1ms to 500ms.
var lowLatencyBuckets = []float64{.001, .002, .005, .010, .015, .020, .025, .030, .050, .100, .500}

var (
	// -------------------------------------------------------------------------
	// HTTP API
	// -------------------------------------------------------------------------

	// HTTPReqDuration measures the latency of HTTP requests.
	// Metric: skuld_api_http_handling_seconds
	HTTPReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests",
		Buckets:   prometheus.DefBuckets, // Admin API runs at human speed
	}, []string{"method", "route"})

	// HTTPReqTotal counts the total number of HTTP requests.
	// Metric: skuld_api_http_requests_total
	HTTPReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests",
	}, []string{"method", "route", "code"})

	// -------------------------------------------------------------------------
	// REGISTRY (flag lifecycle + evaluation)
	// -------------------------------------------------------------------------

	// RegistryOpDuration measures the latency of registry operations
	// (create, get, update, delete, list).
	// Metric: skuld_registry_operation_seconds
	RegistryOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "operation_seconds",
		Help:      "Time taken by registry operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	// EvaluationsTotal counts flag evaluations by rule type and verdict.
	// Untargeted flags are labeled rule_type="none".
	// Metric: skuld_registry_evaluations_total
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "evaluations_total",
		Help:      "Total flag evaluations by rule type and result",
	}, []string{"rule_type", "result"})

	// EvaluationDuration measures rule evaluation latency. Evaluations are
	// pure in-memory work and must stay inside the low-latency buckets.
	// Metric: skuld_registry_evaluation_seconds
	EvaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "registry",
		Name:      "evaluation_seconds",
		Help:      "Time taken to evaluate a flag against a context",
		Buckets:   lowLatencyBuckets,
	})

	// -------------------------------------------------------------------------
	// CACHE
	// -------------------------------------------------------------------------

	// CacheHits counts lookups answered by the cache.
	// Metric: skuld_cache_hits_total
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"backend"})

	// CacheMisses counts lookups that fell through to the store.
	// Metric: skuld_cache_misses_total
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"backend"})

	// CacheErrors counts cache operations that failed and degraded to the
	// store. The cache is an optimization, so these are not request errors,
	// but a growing rate means the cache is effectively offline.
	// Metric: skuld_cache_errors_total
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "errors_total",
		Help:      "Total failed cache operations",
	}, []string{"backend", "operation"})

	// CacheItemsCount gauges the current entry count of the in-memory
	// backend.
	// Metric: skuld_cache_items_count
	CacheItemsCount = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "items_count",
		Help:      "Current number of items in the in-memory cache",
	})

	// -------------------------------------------------------------------------
	// NOTIFIER
	// -------------------------------------------------------------------------

	// NotifierDeliveries counts webhook deliveries by change kind and
	// outcome (delivered, failed, excluded).
	// Metric: skuld_notifier_deliveries_total
	NotifierDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "notifier",
		Name:      "deliveries_total",
		Help:      "Total change notification deliveries by outcome",
	}, []string{"event", "outcome"})
)
