package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ScyllaDb = "scylladb"
)

var (
	DbReadLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "db_read_latency_seconds",
			Namespace: FitmetricsNamespace,
			ConstLabels: prometheus.Labels{
				"db": ScyllaDb,
			},
			Buckets: prometheus.DefBuckets,
			Help:    "The latency of db read operations in seconds.",
		},
		[]string{"query"},
	)

	DbWriteLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:      "db_write_latency_seconds",
			Namespace: FitmetricsNamespace,
			ConstLabels: prometheus.Labels{
				"db": ScyllaDb,
			},
			Buckets: prometheus.DefBuckets,
			Help:    "The latency of db write operations in seconds.",
		},
		[]string{"query"},
	)

	DbErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "db_errors_total",
			Namespace:   FitmetricsNamespace,
			ConstLabels: prometheus.Labels{"db": ScyllaDb},
			Help:        "The total number of failed db queries.",
		},
		[]string{"query"},
	)
)
