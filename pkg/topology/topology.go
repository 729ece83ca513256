package topology

import (
	"fmt"

	"github.com/relaykv/harness/pkg/validation"
)

// NodeDescriptor identifies one worker node in the cluster: a stable integer
// ID, a human-readable name, and the host/port its HTTP API listens on.
type NodeDescriptor struct {
	ID   int    `yaml:"id" json:"id" validate:"gte=0"`
	Name string `yaml:"name" json:"name"`
	Host string `yaml:"host" json:"host" validate:"required"`
	Port int    `yaml:"port" json:"port" validate:"required,gte=1,lte=65535"`
}

// Addr returns the node's host:port.
func (n NodeDescriptor) Addr() string {
	return fmt.Sprintf("%s:%d", n.Host, n.Port)
}

// BaseURL returns the root URL of the node's HTTP API.
func (n NodeDescriptor) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", n.Host, n.Port)
}

// Topology is the static shape of the cluster: the set of nodes the harness
// spawns and wires together. It is a plain value, built once and passed
// explicitly through every bootstrap phase.
type Topology struct {
	Nodes []NodeDescriptor `yaml:"nodes" json:"nodes" validate:"required,min=1,dive"`
}

// Default returns the standard local three-node topology.
func Default() Topology {
	return Topology{
		Nodes: []NodeDescriptor{
			{ID: 0, Name: "node-0", Host: "127.0.0.1", Port: 8080},
			{ID: 1, Name: "node-1", Host: "127.0.0.1", Port: 8081},
			{ID: 2, Name: "node-2", Host: "127.0.0.1", Port: 8082},
		},
	}
}

// Size returns the number of nodes.
func (t Topology) Size() int {
	return len(t.Nodes)
}

// Node looks up a node by ID.
func (t Topology) Node(id int) (NodeDescriptor, error) {
	for _, n := range t.Nodes {
		if n.ID == id {
			return n, nil
		}
	}
	return NodeDescriptor{}, fmt.Errorf("%w: id %d", ErrNodeNotFound, id)
}

// IDs returns the node IDs in declaration order.
func (t Topology) IDs() []int {
	ids := make([]int, len(t.Nodes))
	for i, n := range t.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Validate checks if the topology is usable. Schema-level checks run through
// the struct validator; this adds the cross-node rules tags cannot express.
func (t Topology) Validate() error {
	if len(t.Nodes) == 0 {
		return ErrNoNodes
	}
	if err := validation.Struct(t); err != nil {
		return err
	}

	seenIDs := make(map[int]bool, len(t.Nodes))
	seenAddrs := make(map[string]bool, len(t.Nodes))
	for _, n := range t.Nodes {
		if n.Name != "" {
			if err := validation.ValidateName(n.Name); err != nil {
				return fmt.Errorf("node %d: %w", n.ID, err)
			}
		}
		if seenIDs[n.ID] {
			return fmt.Errorf("%w: id %d", ErrDuplicateNodeID, n.ID)
		}
		seenIDs[n.ID] = true

		addr := n.Addr()
		if seenAddrs[addr] {
			return fmt.Errorf("%w: %s", ErrDuplicateAddress, addr)
		}
		seenAddrs[addr] = true
	}
	return nil
}
