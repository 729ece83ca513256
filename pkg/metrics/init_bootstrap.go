package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initBootstrapMetrics() {
	r.BootstrapPhaseDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_harness_bootstrap_phase_duration_seconds",
			Help:    "Duration of each bootstrap phase in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		},
		[]string{"phase"},
	)

	r.BootstrapPhasesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_harness_bootstrap_phases_total",
			Help: "Bootstrap phase executions by outcome",
		},
		[]string{"phase", "status"}, // completed, degraded
	)

	r.NodesSpawnedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "relay_harness_nodes_spawned_total",
			Help: "Total number of worker processes spawned",
		},
	)

	r.NodesTerminatedTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "relay_harness_nodes_terminated_total",
			Help: "Total number of worker processes terminated by the harness",
		},
	)

	r.AddressResolutionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_harness_address_resolutions_total",
			Help: "Address resolution outcomes per node",
		},
		[]string{"status"}, // resolved, unresolved
	)

	r.AddressResolutionAttempts = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "relay_harness_address_resolution_attempts_total",
			Help: "Individual address polling attempts, including retries",
		},
	)

	r.PeerConnectsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_harness_peer_connects_total",
			Help: "Peer connect calls by outcome",
		},
		[]string{"status"}, // ok, failed, skipped
	)

	r.ReadySignalsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_harness_ready_signals_total",
			Help: "Readiness signal posts by outcome",
		},
		[]string{"status"}, // ok, failed
	)

	r.LeaderProbesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_harness_leader_probes_total",
			Help: "Leader probe requests by result",
		},
		[]string{"result"}, // leader, follower, error
	)

	r.LeaderPresent = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_harness_leader_present",
			Help: "Whether a leader has been discovered (1=yes, 0=no)",
		},
	)

	r.ClusterNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_harness_cluster_nodes_total",
			Help: "Number of nodes in the configured topology",
		},
	)

	r.ProcessesAlive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "relay_harness_processes_alive",
			Help: "Number of spawned worker processes still registered",
		},
	)
}
