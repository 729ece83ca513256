package bootstrap

import (
	"context"

	"github.com/relaykv/harness/pkg/events"
	"github.com/relaykv/harness/pkg/logging"
	"github.com/relaykv/harness/pkg/metrics"
	"github.com/relaykv/harness/pkg/topology"
)

// PeerMeshBuilder wires the full mesh: every node is told about every other
// resolved node, one directed pair at a time. Each pair gets exactly one
// attempt; a refused connect is logged and skipped, never retried.
type PeerMeshBuilder struct {
	client ControlClient
	log    logging.Logger
	reg    *metrics.Registry
	emit   *events.Emitter
}

// NewPeerMeshBuilder creates a mesh builder.
func NewPeerMeshBuilder(client ControlClient, log logging.Logger, reg *metrics.Registry, emit *events.Emitter) *PeerMeshBuilder {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	return &PeerMeshBuilder{client: client, log: log, reg: reg, emit: emit}
}

// Connect issues connect_peer calls for every ordered pair of resolved
// nodes and returns how many succeeded. Pairs with an unresolved endpoint
// are skipped.
func (b *PeerMeshBuilder) Connect(ctx context.Context, topo topology.Topology, addrs AddressMap) int {
	connected := 0
	for _, node := range topo.Nodes {
		for _, peer := range topo.Nodes {
			if node.ID == peer.ID {
				continue
			}
			if ctx.Err() != nil {
				return connected
			}

			peerAddr, peerOK := addrs[peer.ID]
			if _, nodeOK := addrs[node.ID]; !nodeOK || !peerOK {
				b.reg.RecordPeerConnect("skipped")
				b.log.Debug("peer pair skipped",
					logging.NodeID(node.ID),
					logging.Int("peer_id", peer.ID))
				continue
			}

			if err := b.client.ConnectPeer(ctx, node.BaseURL(), peer.ID, peerAddr); err != nil {
				b.reg.RecordPeerConnect("failed")
				b.log.Warn("peer connect failed",
					logging.NodeID(node.ID),
					logging.Int("peer_id", peer.ID),
					logging.Addr(peerAddr),
					logging.Error(err))
				b.emit.Emit(events.EvtPeerFailed, events.PeerPayload{
					FromID: node.ID, ToID: peer.ID, Address: peerAddr, Reason: err.Error(),
				})
				continue
			}

			connected++
			b.reg.RecordPeerConnect("ok")
			b.log.Debug("peer connected",
				logging.NodeID(node.ID),
				logging.Int("peer_id", peer.ID),
				logging.Addr(peerAddr))
			b.emit.Emit(events.EvtPeerConnected, events.PeerPayload{
				FromID: node.ID, ToID: peer.ID, Address: peerAddr,
			})
		}
	}
	return connected
}
