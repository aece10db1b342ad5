package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all metrics for the application
type Registry struct {
	// Scheduler Metrics
	BatchesPlanned   *prometheus.CounterVec
	BatchSize        *prometheus.HistogramVec
	ElementsDrawn    *prometheus.CounterVec
	ElementsRetired  *prometheus.CounterVec
	ElementsEvicted  prometheus.Counter
	EventsSkipped    *prometheus.CounterVec
	Replays          prometheus.Counter
	RunsCancelled    prometheus.Counter
	ActiveElements   prometheus.Gauge
	PendingCallbacks prometheus.Gauge

	// Stream Metrics
	StreamClients       prometheus.Gauge
	StreamMessagesTotal prometheus.Counter
	StreamDropsTotal    prometheus.Counter

	// Dashboard Metrics
	NotificationsTotal *prometheus.CounterVec
	BaseMapLoads       *prometheus.CounterVec

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	r.initSchedulerMetrics()
	r.initStreamMetrics()
	r.initDashboardMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
