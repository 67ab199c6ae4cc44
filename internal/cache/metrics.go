package cache

import "github.com/randytsao24/moim/internal/metrics"

// Metrics receives cache events
type Metrics interface {
	Hit()
	Miss()
	Eviction()
	Expire()
	Size(n int)
}

// NoopMetrics discards all events
type NoopMetrics struct{}

func (NoopMetrics) Hit() {}
func (NoopMetrics) Miss() {}
func (NoopMetrics) Eviction() {}
func (NoopMetrics) Expire() {}
func (NoopMetrics) Size(int) {}

// PrometheusMetrics reports events under a cache label
type PrometheusMetrics struct {
	name string
}

// NewPrometheusMetrics returns Metrics labelled with name
func NewPrometheusMetrics(name string) PrometheusMetrics {
	return PrometheusMetrics{name: name}
}

func (m PrometheusMetrics) Hit() { metrics.CacheHits.WithLabelValues(m.name).Inc() }
func (m PrometheusMetrics) Miss() { metrics.CacheMisses.WithLabelValues(m.name).Inc() }
func (m PrometheusMetrics) Eviction() { metrics.CacheEvictions.WithLabelValues(m.name).Inc() }
func (m PrometheusMetrics) Expire() { metrics.CacheExpirations.WithLabelValues(m.name).Inc() }
func (m PrometheusMetrics) Size(n int) {
	metrics.CacheSize.WithLabelValues(m.name).Set(float64(n))
}
