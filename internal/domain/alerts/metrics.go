package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	alertsFired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_fired_total",
			Help: "Calendar alerts fired by kind",
		},
		[]string{"kind"},
	)

	tickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alerts_tick_duration_seconds",
			Help:    "Duration of one alert scheduler poll",
			Buckets: prometheus.DefBuckets,
		},
	)

	tickFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "alerts_tick_failures_total",
			Help: "Alert scheduler polls that failed",
		},
	)

	trafficLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alerts_traffic_lookups_total",
			Help: "Traffic lookups by outcome (ok, unavailable, error)",
		},
		[]string{"outcome"},
	)
)
