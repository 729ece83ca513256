package bootstrap

import "context"

// ControlClient is the slice of the control-plane API the bootstrap phases
// need. *controlplane.Client satisfies it; tests substitute stubs.
type ControlClient interface {
	ListenAddr(ctx context.Context, baseURL string) (string, error)
	ConnectPeer(ctx context.Context, baseURL string, peerID int, addr string) error
	Ready(ctx context.Context, baseURL string) error
	IsLeader(ctx context.Context, baseURL string) (bool, error)
}

// AddressMap holds the advertised consensus address of each node that
// answered during resolution, keyed by node ID. Nodes that never answered
// are simply absent.
type AddressMap map[int]string

// Leadership is the outcome of leader discovery.
type Leadership struct {
	NodeID int
	URL    string
	Found  bool
	Ticks  int
}

// DiscoveryState tracks where the leader discoverer is in its scan.
type DiscoveryState uint8

const (
	StateSearching DiscoveryState = iota
	StateFound
	StateExhausted
)

func (s DiscoveryState) String() string {
	switch s {
	case StateSearching:
		return "searching"
	case StateFound:
		return "found"
	case StateExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Phase names used in metrics, logs, and events.
const (
	PhaseCleanup  = "cleanup"
	PhaseSpawn    = "spawn"
	PhaseResolve  = "resolve"
	PhaseMesh     = "mesh"
	PhaseReady    = "ready"
	PhaseDiscover = "discover"
)
