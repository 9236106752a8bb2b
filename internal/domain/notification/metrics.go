package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	liveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notification_live_subscribers",
		Help: "Number of connected push-stream subscribers",
	})

	alertsBroadcast = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_alerts_broadcast_total",
		Help: "Alerts broadcast by kind",
	}, []string{"kind"})

	pushDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_push_deliveries_total",
		Help: "Web push delivery attempts by outcome",
	}, []string{"outcome"})
)
