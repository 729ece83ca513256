package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLoadgenMetrics() {
	r.OperationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_harness_operations_total",
			Help: "Key-value operations issued by the load generator",
		},
		[]string{"op_type", "status"}, // put/get x success/failure
	)

	r.OperationDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_harness_operation_duration_seconds",
			Help:    "Duration of individual key-value operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		},
		[]string{"op_type"},
	)

	r.WorkersActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_harness_workers_active",
			Help: "Number of load generation workers currently running",
		},
	)

	r.BenchmarkOpsRate = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_harness_benchmark_ops_per_second",
			Help: "Most recent throughput per benchmark category",
		},
		[]string{"op_type"},
	)
}
