package cache

import (
	"time"

	"github.com/ntentasd/fitmetrics-api/internal/metrics"
)

type CacheMetrics struct {
	driver string
}

func NewCacheMetrics(driver string) *CacheMetrics {
	return &CacheMetrics{
		driver,
	}
}

// RecordHit marks a cache hit and logs latency since start
func (cm *CacheMetrics) RecordHit(start time.Time) {
	metrics.CacheHitsTotal.WithLabelValues(cm.driver).Inc()
	metrics.CacheReadLatencySeconds.WithLabelValues(cm.driver).Observe(time.Since(start).Seconds())
}

// RecordMiss marks a cache miss
func (cm *CacheMetrics) RecordMiss() {
	metrics.CacheMissesTotal.WithLabelValues(cm.driver).Inc()
}

// RecordWrite logs cache write latency since start
func (cm *CacheMetrics) RecordWrite(start time.Time) {
	metrics.CacheWriteLatencySeconds.WithLabelValues(cm.driver).Observe(time.Since(start).Seconds())
}

// RecordError counts a failed backend call for op
func (cm *CacheMetrics) RecordError(op string) {
	metrics.CacheErrorsTotal.WithLabelValues(cm.driver, op).Inc()
}

// RecordSkip counts a call that ran without the cache
func (cm *CacheMetrics) RecordSkip() {
	metrics.CacheSkipsTotal.WithLabelValues(cm.driver).Inc()
}

// RecordInvalidated counts keys removed by a pattern delete
func (cm *CacheMetrics) RecordInvalidated(n int) {
	metrics.CacheInvalidatedKeysTotal.WithLabelValues(cm.driver).Add(float64(n))
}

// RecordUp exports the outcome of the last liveness probe
func (cm *CacheMetrics) RecordUp(up bool) {
	v := 0.0
	if up {
		v = 1
	}
	metrics.CacheUp.WithLabelValues(cm.driver).Set(v)
}
