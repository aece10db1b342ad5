package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSchedulerMetrics() {
	r.BatchesPlanned = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "attackmap_batches_planned_total",
			Help: "Total number of animation batches planned",
		},
		[]string{"mode"},
	)

	r.BatchSize = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "attackmap_batch_size",
			Help:    "Number of events per planned batch",
			Buckets: []float64{0, 1, 5, 10, 25, 50},
		},
		[]string{"mode"},
	)

	r.ElementsDrawn = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "attackmap_elements_drawn_total",
			Help: "Total number of visual elements drawn",
		},
		[]string{"kind"},
	)

	r.ElementsRetired = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "attackmap_elements_retired_total",
			Help: "Total number of visual elements retired after fading out",
		},
		[]string{"kind"},
	)

	r.ElementsEvicted = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "attackmap_elements_evicted_total",
			Help: "Total number of visual elements evicted by the active element ceiling",
		},
	)

	r.EventsSkipped = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "attackmap_events_skipped_total",
			Help: "Total number of events left out of a batch",
		},
		[]string{"reason"},
	)

	r.Replays = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "attackmap_replays_total",
			Help: "Total number of sequential replays fired",
		},
	)

	r.RunsCancelled = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "attackmap_runs_cancelled_total",
			Help: "Total number of scheduler runs cancelled by a restart or close",
		},
	)

	r.ActiveElements = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "attackmap_active_elements",
			Help: "Number of visual elements currently live",
		},
	)

	r.PendingCallbacks = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "attackmap_pending_callbacks",
			Help: "Number of scheduled callbacks waiting to fire",
		},
	)
}
