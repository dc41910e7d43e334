package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ValkeyCache    = "valkey"
	MemcachedCache = "memcached"
	NoCache        = "none"
)

var (
	CacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "cache_misses_total",
		Namespace: FitmetricsNamespace,
		Help:      "The total number of cache misses since the application started.",
	}, []string{"cache"})

	CacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "cache_hits_total",
		Namespace: FitmetricsNamespace,
		Help:      "The total number of cache hits since the application started.",
	}, []string{"cache"})

	CacheErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "cache_errors_total",
		Namespace: FitmetricsNamespace,
		Help:      "The total number of failed cache operations, by operation.",
	}, []string{"cache", "op"})

	CacheSkipsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "cache_skips_total",
		Namespace: FitmetricsNamespace,
		Help:      "Calls that bypassed the cache because no key could be built.",
	}, []string{"cache"})

	CacheInvalidatedKeysTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name:      "cache_invalidated_keys_total",
		Namespace: FitmetricsNamespace,
		Help:      "The total number of keys removed by pattern invalidation.",
	}, []string{"cache"})

	CacheUp = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name:      "cache_up",
		Namespace: FitmetricsNamespace,
		Help:      "1 when the last cache liveness probe succeeded.",
	}, []string{"cache"})

	CacheReadLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "cache_read_latency_seconds",
		Namespace: FitmetricsNamespace,
		Buckets:   prometheus.DefBuckets,
		Help:      "The latency of cache read operations in seconds.",
	}, []string{"cache"})

	CacheWriteLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:      "cache_write_latency_seconds",
		Namespace: FitmetricsNamespace,
		Buckets:   prometheus.DefBuckets,
		Help:      "The latency of cache write operations in seconds.",
	}, []string{"cache"})
)
