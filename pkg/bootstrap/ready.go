package bootstrap

import (
	"context"

	"github.com/relaykv/harness/pkg/events"
	"github.com/relaykv/harness/pkg/logging"
	"github.com/relaykv/harness/pkg/metrics"
	"github.com/relaykv/harness/pkg/topology"
)

// ReadinessSignaler tells every node that peer wiring is done. One
// fire-and-forget POST per node; a node that misses the signal is the
// election's problem, not the harness's.
type ReadinessSignaler struct {
	client ControlClient
	log    logging.Logger
	reg    *metrics.Registry
	emit   *events.Emitter
}

// NewReadinessSignaler creates a signaler.
func NewReadinessSignaler(client ControlClient, log logging.Logger, reg *metrics.Registry, emit *events.Emitter) *ReadinessSignaler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	return &ReadinessSignaler{client: client, log: log, reg: reg, emit: emit}
}

// SignalAll posts ready to every node and returns how many acknowledged.
func (s *ReadinessSignaler) SignalAll(ctx context.Context, topo topology.Topology) int {
	ok := 0
	for _, node := range topo.Nodes {
		if ctx.Err() != nil {
			break
		}

		if err := s.client.Ready(ctx, node.BaseURL()); err != nil {
			s.reg.RecordReadySignal(false)
			s.log.Warn("ready signal failed", logging.NodeID(node.ID), logging.Error(err))
			s.emit.Emit(events.EvtReadySignaled, events.ReadyPayload{NodeID: node.ID, OK: false})
			continue
		}

		ok++
		s.reg.RecordReadySignal(true)
		s.log.Debug("ready signaled", logging.NodeID(node.ID))
		s.emit.Emit(events.EvtReadySignaled, events.ReadyPayload{NodeID: node.ID, OK: true})
	}
	return ok
}
