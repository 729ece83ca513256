package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the harness
type Registry struct {
	// Bootstrap Metrics
	BootstrapPhaseDuration    *prometheus.HistogramVec
	BootstrapPhasesTotal      *prometheus.CounterVec
	NodesSpawnedTotal         prometheus.Counter
	NodesTerminatedTotal      prometheus.Counter
	AddressResolutionsTotal   *prometheus.CounterVec
	AddressResolutionAttempts prometheus.Counter
	PeerConnectsTotal         *prometheus.CounterVec
	ReadySignalsTotal         *prometheus.CounterVec
	LeaderProbesTotal         *prometheus.CounterVec
	LeaderPresent             prometheus.Gauge
	ClusterNodesTotal         prometheus.Gauge
	ProcessesAlive            prometheus.Gauge

	// Load Generation Metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	WorkersActive     prometheus.Gauge
	BenchmarkOpsRate  *prometheus.GaugeVec

	// Event Feed Metrics
	EventsPublishedTotal *prometheus.CounterVec
	EventsDroppedTotal   prometheus.Counter

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

	r.initBootstrapMetrics()
	r.initLoadgenMetrics()
	r.initEventMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
