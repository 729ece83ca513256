// Package bootstrap drives a cluster from nothing to an elected leader:
// clear leftovers, spawn the nodes, resolve their advertised addresses,
// wire the full peer mesh, signal readiness, and watch the election. Every
// phase is best-effort except the caller-supplied context; a cluster that
// never elects is reported, not raised.
package bootstrap

import (
	"context"
	"time"

	"github.com/relaykv/harness/pkg/controlplane"
	"github.com/relaykv/harness/pkg/events"
	"github.com/relaykv/harness/pkg/logging"
	"github.com/relaykv/harness/pkg/metrics"
	"github.com/relaykv/harness/pkg/process"
	"github.com/relaykv/harness/pkg/retry"
	"github.com/relaykv/harness/pkg/topology"
)

// Deps bundles the orchestrator's collaborators. Nil fields get production
// defaults; tests inject stubs and a fake sleeper.
type Deps struct {
	Processes *process.Manager
	Control   ControlClient
	Log       logging.Logger
	Metrics   *metrics.Registry
	Emitter   *events.Emitter
	Sleep     retry.SleepFunc
}

// Orchestrator runs the bootstrap phases against one topology.
type Orchestrator struct {
	topo  topology.Topology
	cfg   Config
	procs *process.Manager
	log   logging.Logger
	reg   *metrics.Registry
	emit  *events.Emitter
	sleep retry.SleepFunc

	resolver   *AddressResolver
	mesh       *PeerMeshBuilder
	readiness  *ReadinessSignaler
	discoverer *LeaderDiscoverer
}

// New creates an orchestrator for the given topology.
func New(topo topology.Topology, cfg Config, deps Deps) *Orchestrator {
	cfg = cfg.Normalize()

	if deps.Log == nil {
		deps.Log = logging.NewNopLogger()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.DefaultRegistry()
	}
	if deps.Control == nil {
		deps.Control = controlplane.New()
	}
	if deps.Sleep == nil {
		deps.Sleep = retry.Sleep
	}
	if deps.Processes == nil {
		deps.Processes = process.NewManager(deps.Log, deps.Metrics)
	}

	o := &Orchestrator{
		topo:  topo,
		cfg:   cfg,
		procs: deps.Processes,
		log:   deps.Log,
		reg:   deps.Metrics,
		emit:  deps.Emitter,
		sleep: deps.Sleep,
	}
	o.resolver = NewAddressResolver(deps.Control, cfg.AddressPolicy, deps.Sleep, deps.Log, deps.Metrics, deps.Emitter)
	o.mesh = NewPeerMeshBuilder(deps.Control, deps.Log, deps.Metrics, deps.Emitter)
	o.readiness = NewReadinessSignaler(deps.Control, deps.Log, deps.Metrics, deps.Emitter)
	o.discoverer = NewLeaderDiscoverer(deps.Control, cfg.LeaderPolicy, deps.Sleep, deps.Log, deps.Metrics, deps.Emitter)

	deps.Metrics.ClusterNodesTotal.Set(float64(topo.Size()))
	return o
}

// Processes exposes the process manager so callers can terminate the
// cluster on the way out.
func (o *Orchestrator) Processes() *process.Manager {
	return o.procs
}

// Discoverer exposes the leader discoverer for single-scan callers.
func (o *Orchestrator) Discoverer() *LeaderDiscoverer {
	return o.discoverer
}

func (o *Orchestrator) phase(name string, fn func() error) error {
	o.emit.Emit(events.EvtPhaseStarted, events.PhasePayload{Phase: name})
	o.log.Info("phase started", logging.Phase(name))

	start := time.Now()
	err := fn()
	elapsed := time.Since(start)

	status := "ok"
	if err != nil {
		status = "failed"
	}
	o.reg.RecordPhase(name, status, elapsed)
	o.emit.Emit(events.EvtPhaseCompleted, events.PhasePayload{Phase: name, Status: status})
	o.log.Info("phase completed",
		logging.Phase(name),
		logging.String("status", status),
		logging.Latency(elapsed))
	return err
}

// Cleanup clears leftover worker processes from previous runs and lets the
// OS settle.
func (o *Orchestrator) Cleanup(ctx context.Context) error {
	return o.phase(PhaseCleanup, func() error {
		o.procs.KillPattern(o.cfg.KillPattern)
		return o.sleep(ctx, o.cfg.CleanupSettle)
	})
}

// SpawnAll starts every node in topology order with a stagger between
// spawns and a settle after the last one. Individual spawn failures are
// logged and skipped; a partial cluster can still elect.
func (o *Orchestrator) SpawnAll(ctx context.Context, binary string) (int, error) {
	spawned := 0
	err := o.phase(PhaseSpawn, func() error {
		for i, node := range o.topo.Nodes {
			if err := ctx.Err(); err != nil {
				return err
			}

			peers := make([]int, 0, o.topo.Size()-1)
			for _, other := range o.topo.Nodes {
				if other.ID != node.ID {
					peers = append(peers, other.ID)
				}
			}

			np, err := o.procs.Spawn(node, binary, peers)
			if err != nil {
				o.log.Warn("spawn failed", logging.NodeID(node.ID), logging.Error(err))
				continue
			}
			spawned++
			o.emit.Emit(events.EvtNodeSpawned, events.NodePayload{
				NodeID: node.ID, Port: node.Port, Pid: np.Pid,
			})

			if i < len(o.topo.Nodes)-1 {
				if err := o.sleep(ctx, o.cfg.SpawnStagger); err != nil {
					return err
				}
			}
		}
		return o.sleep(ctx, o.cfg.SpawnSettle)
	})
	return spawned, err
}

// ResolveAddresses polls every node for its advertised address.
func (o *Orchestrator) ResolveAddresses(ctx context.Context) AddressMap {
	var addrs AddressMap
	o.phase(PhaseResolve, func() error {
		addrs = o.resolver.ResolveAll(ctx, o.topo)
		return ctx.Err()
	})
	return addrs
}

// ConnectMesh wires every resolved node pair and returns the number of
// successful connects.
func (o *Orchestrator) ConnectMesh(ctx context.Context, addrs AddressMap) int {
	connected := 0
	o.phase(PhaseMesh, func() error {
		connected = o.mesh.Connect(ctx, o.topo, addrs)
		return ctx.Err()
	})
	return connected
}

// SignalReady tells every node the mesh is wired.
func (o *Orchestrator) SignalReady(ctx context.Context) int {
	ok := 0
	o.phase(PhaseReady, func() error {
		ok = o.readiness.SignalAll(ctx, o.topo)
		return ctx.Err()
	})
	return ok
}

// DiscoverLeader watches the election under the leader policy.
func (o *Orchestrator) DiscoverLeader(ctx context.Context) (Leadership, error) {
	var lead Leadership
	err := o.phase(PhaseDiscover, func() error {
		var err error
		lead, err = o.discoverer.Discover(ctx, o.topo)
		return err
	})
	return lead, err
}

// Run executes the whole bootstrap: cleanup, spawn, resolve, mesh, ready,
// discover. The returned error reports context cancellation or a spawn
// sweep cut short; an un-elected cluster comes back as Leadership with
// Found == false and a nil error.
func (o *Orchestrator) Run(ctx context.Context, binary string) (Leadership, error) {
	if err := o.Cleanup(ctx); err != nil {
		return Leadership{}, err
	}
	if _, err := o.SpawnAll(ctx, binary); err != nil {
		return Leadership{}, err
	}

	addrs := o.ResolveAddresses(ctx)
	o.ConnectMesh(ctx, addrs)
	o.SignalReady(ctx)
	if err := ctx.Err(); err != nil {
		return Leadership{}, err
	}

	return o.DiscoverLeader(ctx)
}
