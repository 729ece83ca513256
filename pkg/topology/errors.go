package topology

import "errors"

// Topology errors
var (
	ErrNoNodes          = errors.New("topology has no nodes")
	ErrDuplicateNodeID  = errors.New("duplicate node ID in topology")
	ErrDuplicateAddress = errors.New("duplicate host:port in topology")
	ErrNodeNotFound     = errors.New("node not found in topology")
)
