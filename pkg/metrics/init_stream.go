package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initStreamMetrics() {
	r.StreamClients = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "attackmap_stream_clients",
			Help: "Number of connected websocket clients",
		},
	)

	r.StreamMessagesTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "attackmap_stream_messages_total",
			Help: "Total number of instructions broadcast to clients",
		},
	)

	r.StreamDropsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "attackmap_stream_drops_total",
			Help: "Total number of clients dropped for falling behind",
		},
	)
}

func (r *Registry) initDashboardMetrics() {
	r.NotificationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "attackmap_notifications_total",
			Help: "Total number of user notifications raised",
		},
		[]string{"destructive"},
	)

	r.BaseMapLoads = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "attackmap_basemap_loads_total",
			Help: "Base map load attempts by outcome",
		},
		[]string{"status"},
	)
}
