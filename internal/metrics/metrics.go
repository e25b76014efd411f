// Package metrics provides Prometheus metrics for qrstudio.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "qrstudio"

// Cache names used as label values.
const (
	CacheRender = "render"
	CacheResize = "resize"
)

// Render paths used as label values.
const (
	PathFast     = "fast"
	PathCompose  = "compose"
	PathFallback = "fallback"
)

// Metrics owns a private registry so several instances can coexist in tests.
// A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// CacheRequests counts cache lookups by cache and result.
	CacheRequests *prometheus.CounterVec
	// RenderFallbacks counts compositing failures recovered by the fast path.
	RenderFallbacks prometheus.Counter
	// RenderDuration measures uncached renders by path.
	RenderDuration *prometheus.HistogramVec
	// Exports counts export requests by format and result.
	Exports *prometheus.CounterVec
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Total number of cache lookups",
		}, []string{"cache", "result"}),
		RenderFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_fallbacks_total",
			Help:      "Total number of renders that fell back to the plain path",
		}),
		RenderDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of uncached renders in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
		Exports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Total number of export requests",
		}, []string{"format", "result"}),
	}
}

// RecordCache records a cache lookup.
func (m *Metrics) RecordCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequests.WithLabelValues(cache, result).Inc()
}

// RecordFallback records a recovered compositing failure.
func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.RenderFallbacks.Inc()
}

// ObserveRender records how long an uncached render took.
func (m *Metrics) ObserveRender(path string, d time.Duration) {
	if m == nil {
		return
	}
	m.RenderDuration.WithLabelValues(path).Observe(d.Seconds())
}

// RecordExport records an export attempt.
func (m *Metrics) RecordExport(format string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Exports.WithLabelValues(format, result).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
