// Package metrics provides Prometheus metrics collection for the router.
// It tracks routing decisions, provider latency and cost, admission-control
// outcomes, and the health of the async recording pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "relay"

// LatencyBuckets defines histogram buckets for provider latency in seconds.
var LatencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 0.75,
	1.0, 1.5, 2.0, 2.5, 3.0, 4.0, 5.0,
	7.5, 10.0, 15.0, 30.0, 60.0,
}

var (
	// RoutingDecisions counts routing decisions by winning provider and task type.
	RoutingDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_decisions_total",
			Help:      "Total number of routing decisions",
		},
		[]string{"provider", "task_type"},
	)

	// RoutingFailures counts route calls that produced no eligible provider.
	RoutingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routing_failures_total",
			Help:      "Total number of route calls with no eligible provider",
		},
	)

	// DecisionCacheHits counts routing decisions served from the decision cache.
	DecisionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_cache_hits_total",
			Help:      "Total number of routing decisions served from cache",
		},
	)

	// DispatchRequests counts provider dispatches by outcome.
	DispatchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_requests_total",
			Help:      "Total number of provider dispatches",
		},
		[]string{"provider", "status"},
	)

	// ProviderLatency tracks end-to-end provider call latency in seconds.
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Provider call latency in seconds",
			Buckets:   LatencyBuckets,
		},
		[]string{"provider"},
	)

	// ProviderCost accumulates spend per provider in dollars.
	ProviderCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_cost_dollars_total",
			Help:      "Total cost in USD per provider",
		},
		[]string{"provider"},
	)

	// AdmissionRejections counts requests rejected by the per-provider
	// fixed-window limiter.
	AdmissionRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_rejections_total",
			Help:      "Total number of rate-limit rejections per provider",
		},
		[]string{"provider"},
	)

	// StoreFailOpen counts counter-store failures that caused the limiter
	// to fail open.
	StoreFailOpen = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_fail_open_total",
			Help:      "Total number of counter store errors handled by failing open",
		},
		[]string{"component"},
	)

	// RecorderQueueDepth reports the current depth of the async recording queue.
	RecorderQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "recorder_queue_depth",
			Help:      "Current depth of the async metrics recording queue",
		},
	)

	// RecorderDrops counts outcome records dropped because the queue was full.
	RecorderDrops = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recorder_drops_total",
			Help:      "Total number of outcome records dropped due to a full queue",
		},
	)
)
