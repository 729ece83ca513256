// Package events carries the harness's observability feed: every bootstrap
// phase transition and benchmark milestone becomes an event on an
// in-process bus, optionally mirrored over a PUB socket for external
// watchers. Events never drive control flow; losing one is harmless.
package events

import (
	"encoding/json"
	"time"
)

// EventType identifies what happened.
type EventType uint8

const (
	// Bootstrap lifecycle
	EvtPhaseStarted EventType = iota
	EvtPhaseCompleted
	EvtNodeSpawned
	EvtAddressResolved
	EvtAddressUnresolved
	EvtPeerConnected
	EvtPeerFailed
	EvtReadySignaled

	// Leader discovery
	EvtLeaderFound
	EvtLeaderExhausted

	// Benchmarks
	EvtBenchmarkProgress
	EvtBenchmarkCompleted
)

var eventTypeNames = map[EventType]string{
	EvtPhaseStarted:       "phase_started",
	EvtPhaseCompleted:     "phase_completed",
	EvtNodeSpawned:        "node_spawned",
	EvtAddressResolved:    "address_resolved",
	EvtAddressUnresolved:  "address_unresolved",
	EvtPeerConnected:      "peer_connected",
	EvtPeerFailed:         "peer_failed",
	EvtReadySignaled:      "ready_signaled",
	EvtLeaderFound:        "leader_found",
	EvtLeaderExhausted:    "leader_exhausted",
	EvtBenchmarkProgress:  "benchmark_progress",
	EvtBenchmarkCompleted: "benchmark_completed",
}

func (t EventType) String() string {
	if name, ok := eventTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// Event is the wire envelope: a compact type tag, a unix timestamp, and a
// JSON payload.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"`
	Data      []byte    `json:"data,omitempty"`
}

// NewEvent creates an event with the given type and payload.
func NewEvent(evtType EventType, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      evtType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	return json.Unmarshal(e.Data, v)
}

// PhasePayload marks a bootstrap phase starting or completing.
type PhasePayload struct {
	Phase  string `json:"phase"`
	Status string `json:"status,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// NodePayload describes a spawned node process.
type NodePayload struct {
	NodeID int `json:"node_id"`
	Port   int `json:"port"`
	Pid    int `json:"pid"`
}

// AddressPayload reports address resolution for one node.
type AddressPayload struct {
	NodeID  int    `json:"node_id"`
	Address string `json:"address,omitempty"`
}

// PeerPayload reports one directed peer-wiring attempt.
type PeerPayload struct {
	FromID  int    `json:"from_id"`
	ToID    int    `json:"to_id"`
	Address string `json:"address,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// ReadyPayload reports a readiness signal to one node.
type ReadyPayload struct {
	NodeID int  `json:"node_id"`
	OK     bool `json:"ok"`
}

// LeaderPayload reports the outcome of leader discovery.
type LeaderPayload struct {
	NodeID int    `json:"node_id"`
	URL    string `json:"url,omitempty"`
	Ticks  int    `json:"ticks"`
}

// BenchmarkPayload reports benchmark progress or completion for one
// operation category.
type BenchmarkPayload struct {
	OpType       string  `json:"op_type"`
	Completed    int     `json:"completed"`
	Total        int     `json:"total"`
	OpsPerSecond float64 `json:"ops_per_sec,omitempty"`
}
