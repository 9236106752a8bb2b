package briefing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aggregationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "briefing_aggregation_duration_seconds",
			Help:    "Duration of a full snapshot aggregation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	sourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_source_failures_total",
			Help: "Total number of failed source calls during aggregation",
		},
		[]string{"source"},
	)

	dashboardCacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "briefing_dashboard_cache_total",
			Help: "Dashboard cache lookups by outcome (hit, miss, coalesced)",
		},
		[]string{"outcome"},
	)
)
