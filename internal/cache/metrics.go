package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the project list cache.
type Metrics struct {
	HitsTotal       prometheus.Counter
	MissesTotal     prometheus.Counter
	RefreshesTotal  prometheus.Counter
	RefreshFailures prometheus.Counter
	RefreshDuration prometheus.Histogram
	Projects        prometheus.Gauge
}

// NewMetrics creates and registers the cache metrics. Registration runs
// once per process; repeated calls return the same instance.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			HitsTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "mdt_cache_hits_total",
				Help: "Project list served from cache",
			}),
			MissesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "mdt_cache_misses_total",
				Help: "Project list requests that required a refresh",
			}),
			RefreshesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "mdt_cache_refreshes_total",
				Help: "Completed cache refreshes",
			}),
			RefreshFailures: promauto.NewCounter(prometheus.CounterOpts{
				Name: "mdt_cache_refresh_failures_total",
				Help: "Cache refreshes that returned an error",
			}),
			RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "mdt_cache_refresh_duration_seconds",
				Help:    "Wall time of cache refreshes",
				Buckets: prometheus.DefBuckets,
			}),
			Projects: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "mdt_cache_projects",
				Help: "Projects in the last successful refresh",
			}),
		}
	})
	return globalMetrics
}
