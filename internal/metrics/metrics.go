// Package metrics defines the Prometheus collectors exported at /metrics
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Route cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moim_cache_hits_total",
			Help: "Cache lookups that returned a live entry",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moim_cache_misses_total",
			Help: "Cache lookups that found nothing",
		},
		[]string{"cache"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moim_cache_evictions_total",
			Help: "Entries evicted because the cache was full",
		},
		[]string{"cache"},
	)

	CacheExpirations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moim_cache_expirations_total",
			Help: "Entries removed because their TTL elapsed",
		},
		[]string{"cache"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moim_cache_entries",
			Help: "Current number of cache entries",
		},
		[]string{"cache"},
	)

	// Upstream APIs
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moim_upstream_requests_total",
			Help: "Calls to external APIs by outcome",
		},
		[]string{"upstream", "outcome"}, // success, error, rejected
	)

	UpstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moim_upstream_request_duration_seconds",
			Help:    "Latency of external API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)

	RouteResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moim_route_resolutions_total",
			Help: "Resolved routes by the strategy that produced them",
		},
		[]string{"source"}, // cache, upstream, estimate
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "moim_circuit_breaker_state",
			Help: "0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moim_circuit_breaker_transitions_total",
			Help: "Circuit breaker state changes",
		},
		[]string{"name", "from", "to"},
	)

	// Recommendation
	FanOutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "moim_fanout_duration_seconds",
			Help:    "Wall time to resolve every member/venue pair",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
	)

	FanOutPairs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moim_fanout_pairs_total",
			Help: "Member/venue pairs by how they were filled",
		},
		[]string{"result"}, // resolved, timeout, placeholder
	)

	Recommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moim_recommendations_total",
			Help: "Recommendation requests by search stage that produced candidates",
		},
		[]string{"search_stage"},
	)

	// HTTP
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moim_http_requests_total",
			Help: "HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moim_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)
