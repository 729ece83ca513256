package bootstrap

import (
	"context"

	"github.com/relaykv/harness/pkg/events"
	"github.com/relaykv/harness/pkg/logging"
	"github.com/relaykv/harness/pkg/metrics"
	"github.com/relaykv/harness/pkg/retry"
	"github.com/relaykv/harness/pkg/topology"
)

// AddressResolver polls nodes for the address they advertise to peers. A
// node that never answers within the policy is recorded as unresolved, not
// failed: the mesh phase simply skips it.
type AddressResolver struct {
	client ControlClient
	runner *retry.Runner
	log    logging.Logger
	reg    *metrics.Registry
	emit   *events.Emitter
}

// NewAddressResolver creates a resolver polling under the given policy.
func NewAddressResolver(client ControlClient, policy retry.Policy, sleep retry.SleepFunc,
	log logging.Logger, reg *metrics.Registry, emit *events.Emitter) *AddressResolver {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	return &AddressResolver{
		client: client,
		runner: retry.NewWithSleep(policy, sleep),
		log:    log,
		reg:    reg,
		emit:   emit,
	}
}

// Resolve polls one node until it reports its advertised address or the
// policy is exhausted.
func (r *AddressResolver) Resolve(ctx context.Context, node topology.NodeDescriptor) (string, bool) {
	var addr string
	err := r.runner.Do(ctx, func(ctx context.Context) error {
		r.reg.AddressResolutionAttempts.Inc()
		a, err := r.client.ListenAddr(ctx, node.BaseURL())
		if err != nil {
			return err
		}
		addr = a
		return nil
	})
	if err != nil {
		r.reg.RecordResolution(false)
		r.log.Warn("address unresolved",
			logging.NodeID(node.ID),
			logging.Port(node.Port),
			logging.Error(err))
		r.emit.Emit(events.EvtAddressUnresolved, events.AddressPayload{NodeID: node.ID})
		return "", false
	}

	r.reg.RecordResolution(true)
	r.log.Info("address resolved", logging.NodeID(node.ID), logging.Addr(addr))
	r.emit.Emit(events.EvtAddressResolved, events.AddressPayload{NodeID: node.ID, Address: addr})
	return addr, true
}

// ResolveAll polls every node in topology order.
func (r *AddressResolver) ResolveAll(ctx context.Context, topo topology.Topology) AddressMap {
	addrs := make(AddressMap, topo.Size())
	for _, node := range topo.Nodes {
		if ctx.Err() != nil {
			break
		}
		if addr, ok := r.Resolve(ctx, node); ok {
			addrs[node.ID] = addr
		}
	}
	return addrs
}
