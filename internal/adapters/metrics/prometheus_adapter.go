package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgw_cache_hits_total",
			Help: "Number of cache-aside lookups served from cache, by resource.",
		},
		[]string{"resource"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgw_cache_misses_total",
			Help: "Number of cache-aside lookups that fell through to the authoritative services, by resource.",
		},
		[]string{"resource"},
	)

	DownstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dgw_downstream_request_duration_seconds",
			Help:    "Latency of downstream service calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method"},
	)

	EnrichmentFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dgw_enrichment_failures_total",
			Help: "Number of identity lookups that degraded to a placeholder.",
		},
	)

	ProbeFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dgw_probe_failures_total",
			Help: "Number of failed availability probes, by service.",
		},
		[]string{"service"},
	)
)

// ObserveDownstreamRequest records the latency of one downstream call.
func ObserveDownstreamRequest(service, method string, start time.Time) {
	DownstreamRequestDuration.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
}

// IncrementCacheHit increments the cache hit counter for a resource kind.
func IncrementCacheHit(resource string) {
	CacheHitsTotal.WithLabelValues(resource).Inc()
}

// IncrementCacheMiss increments the cache miss counter for a resource kind.
func IncrementCacheMiss(resource string) {
	CacheMissesTotal.WithLabelValues(resource).Inc()
}

// IncrementEnrichmentFailure counts one identity lookup degraded to a placeholder.
func IncrementEnrichmentFailure() {
	EnrichmentFailuresTotal.Inc()
}

// IncrementProbeFailure counts one failed liveness probe.
func IncrementProbeFailure(service string) {
	ProbeFailuresTotal.WithLabelValues(service).Inc()
}
