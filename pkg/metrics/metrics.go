package metrics

import (
	"time"
)

// RecordPhase records a completed bootstrap phase with its duration
func (r *Registry) RecordPhase(phase, status string, duration time.Duration) {
	r.BootstrapPhasesTotal.WithLabelValues(phase, status).Inc()
	r.BootstrapPhaseDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

// RecordOperation records a single key-value operation
func (r *Registry) RecordOperation(opType, status string, duration time.Duration) {
	r.OperationsTotal.WithLabelValues(opType, status).Inc()
	r.OperationDuration.WithLabelValues(opType).Observe(duration.Seconds())
}

// RecordResolution records the outcome of resolving one node's address
func (r *Registry) RecordResolution(resolved bool) {
	if resolved {
		r.AddressResolutionsTotal.WithLabelValues("resolved").Inc()
	} else {
		r.AddressResolutionsTotal.WithLabelValues("unresolved").Inc()
	}
}

// RecordPeerConnect records a peer connect call outcome
func (r *Registry) RecordPeerConnect(status string) {
	r.PeerConnectsTotal.WithLabelValues(status).Inc()
}

// RecordReadySignal records a readiness signal outcome
func (r *Registry) RecordReadySignal(ok bool) {
	if ok {
		r.ReadySignalsTotal.WithLabelValues("ok").Inc()
	} else {
		r.ReadySignalsTotal.WithLabelValues("failed").Inc()
	}
}

// RecordLeaderProbe records a single is-leader probe result
func (r *Registry) RecordLeaderProbe(result string) {
	r.LeaderProbesTotal.WithLabelValues(result).Inc()
}

// SetLeaderPresent updates the leader gauge
func (r *Registry) SetLeaderPresent(present bool) {
	if present {
		r.LeaderPresent.Set(1)
	} else {
		r.LeaderPresent.Set(0)
	}
}

// SetBenchmarkRate publishes the most recent throughput for a category
func (r *Registry) SetBenchmarkRate(opType string, opsPerSecond float64) {
	r.BenchmarkOpsRate.WithLabelValues(opType).Set(opsPerSecond)
}
