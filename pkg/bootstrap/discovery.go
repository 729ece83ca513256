package bootstrap

import (
	"context"
	"sync"

	"github.com/relaykv/harness/pkg/events"
	"github.com/relaykv/harness/pkg/logging"
	"github.com/relaykv/harness/pkg/metrics"
	"github.com/relaykv/harness/pkg/retry"
	"github.com/relaykv/harness/pkg/topology"
)

// LeaderDiscoverer watches the cluster elect. Each tick it scans the nodes
// in order and takes the first positive leadership claim. Concurrent claims
// during an election are an accepted race: whoever answers first wins the
// scan, and the harness never arbitrates.
type LeaderDiscoverer struct {
	client ControlClient
	policy retry.Policy
	sleep  retry.SleepFunc
	log    logging.Logger
	reg    *metrics.Registry
	emit   *events.Emitter

	mu    sync.Mutex
	state DiscoveryState
}

// NewLeaderDiscoverer creates a discoverer scanning under the given policy.
func NewLeaderDiscoverer(client ControlClient, policy retry.Policy, sleep retry.SleepFunc,
	log logging.Logger, reg *metrics.Registry, emit *events.Emitter) *LeaderDiscoverer {
	def := DefaultLeaderPolicy()
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = def.MaxAttempts
	}
	if policy.Interval <= 0 {
		policy.Interval = def.Interval
	}
	if policy.Timeout <= 0 {
		policy.Timeout = def.Timeout
	}
	if sleep == nil {
		sleep = retry.Sleep
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	return &LeaderDiscoverer{
		client: client,
		policy: policy,
		sleep:  sleep,
		log:    log,
		reg:    reg,
		emit:   emit,
		state:  StateSearching,
	}
}

// State returns the discoverer's current state.
func (d *LeaderDiscoverer) State() DiscoveryState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

func (d *LeaderDiscoverer) setState(s DiscoveryState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Discover waits for a leader to emerge: one interval of settling, then a
// scan, repeated up to the policy's attempt budget. Not finding a leader is
// an outcome, not an error; the error return only reports context
// cancellation.
func (d *LeaderDiscoverer) Discover(ctx context.Context, topo topology.Topology) (Leadership, error) {
	d.setState(StateSearching)

	for tick := 1; tick <= d.policy.MaxAttempts; tick++ {
		if err := d.sleep(ctx, d.policy.Interval); err != nil {
			return Leadership{}, err
		}

		if lead, ok := d.scan(ctx, topo); ok {
			lead.Ticks = tick
			d.setState(StateFound)
			d.reg.SetLeaderPresent(true)
			d.log.Info("leader found",
				logging.Leader(lead.NodeID),
				logging.Addr(lead.URL),
				logging.Attempt(tick))
			d.emit.Emit(events.EvtLeaderFound, events.LeaderPayload{
				NodeID: lead.NodeID, URL: lead.URL, Ticks: tick,
			})
			return lead, nil
		}
	}

	d.setState(StateExhausted)
	d.reg.SetLeaderPresent(false)
	d.log.Warn("no leader elected", logging.Attempt(d.policy.MaxAttempts))
	d.emit.Emit(events.EvtLeaderExhausted, events.LeaderPayload{Ticks: d.policy.MaxAttempts})
	return Leadership{Found: false, Ticks: d.policy.MaxAttempts}, nil
}

// ScanOnce probes every node a single time without settling first. The
// benchmark path uses this: the cluster is either up or the run is off.
func (d *LeaderDiscoverer) ScanOnce(ctx context.Context, topo topology.Topology) (Leadership, bool) {
	lead, ok := d.scan(ctx, topo)
	if !ok {
		d.setState(StateExhausted)
		d.reg.SetLeaderPresent(false)
		return Leadership{}, false
	}

	lead.Ticks = 1
	d.setState(StateFound)
	d.reg.SetLeaderPresent(true)
	d.emit.Emit(events.EvtLeaderFound, events.LeaderPayload{
		NodeID: lead.NodeID, URL: lead.URL, Ticks: 1,
	})
	return lead, true
}

func (d *LeaderDiscoverer) scan(ctx context.Context, topo topology.Topology) (Leadership, bool) {
	for _, node := range topo.Nodes {
		if ctx.Err() != nil {
			return Leadership{}, false
		}

		isLeader, err := d.client.IsLeader(ctx, node.BaseURL())
		if err != nil {
			d.reg.RecordLeaderProbe("error")
			d.log.Debug("leader probe failed", logging.NodeID(node.ID), logging.Error(err))
			continue
		}
		if !isLeader {
			d.reg.RecordLeaderProbe("follower")
			continue
		}

		d.reg.RecordLeaderProbe("leader")
		return Leadership{NodeID: node.ID, URL: node.BaseURL(), Found: true}, true
	}
	return Leadership{}, false
}
