package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "media_search",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "media_search",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10},
	}, []string{"method", "path"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "media_search",
		Name:      "provider_requests_total",
		Help:      "Total requests to metadata providers by provider name and result status.",
	}, []string{"provider", "status"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "media_search",
		Name:      "provider_request_duration_seconds",
		Help:      "Metadata provider request duration in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider"})

	ProviderAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "media_search",
		Name:      "provider_available",
		Help:      "Whether a provider is available (1) or blocked by circuit breaker (0).",
	}, []string{"provider"})

	LocalStoreErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "media_search",
		Name:      "local_store_errors_total",
		Help:      "Total local catalog lookups that failed and were skipped.",
	})

	ItemsDroppedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "media_search",
		Name:      "items_dropped_total",
		Help:      "External items dropped before ranking, by reason.",
	}, []string{"reason"})

	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "media_search",
		Name:      "cache_hits_total",
		Help:      "Total number of cache hits by cache name.",
	}, []string{"cache"})

	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "media_search",
		Name:      "cache_misses_total",
		Help:      "Total number of cache misses by cache name.",
	}, []string{"cache"})

	CacheEvictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "media_search",
		Name:      "cache_evictions_total",
		Help:      "Total number of cache entries removed by cache name and reason.",
	}, []string{"cache", "reason"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		ProviderAvailable,
		LocalStoreErrorsTotal,
		ItemsDroppedTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheEvictionsTotal,
	)
}
