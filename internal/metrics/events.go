package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "events_published_total",
			Namespace: FitmetricsNamespace,
			Help:      "Workout events handed to the broker, by outcome.",
		},
		[]string{"result"},
	)

	EventsConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "events_consumed_total",
			Namespace: FitmetricsNamespace,
			Help:      "Workout events read from the broker, by outcome.",
		},
		[]string{"result"},
	)
)
