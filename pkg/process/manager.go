// Package process builds, spawns, and terminates the worker node processes
// that make up the cluster. It keeps an explicit registry of what it
// started; pattern-based kills exist only to clear leftovers from previous
// runs.
package process

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/relaykv/harness/pkg/logging"
	"github.com/relaykv/harness/pkg/metrics"
	"github.com/relaykv/harness/pkg/topology"
)

// DefaultBinaryName is the worker binary the harness builds and spawns.
const DefaultBinaryName = "relayd"

// terminateGrace is how long a node gets to exit on interrupt before it is
// killed outright.
const terminateGrace = 2 * time.Second

// NodeProcess is one spawned worker node.
type NodeProcess struct {
	Node topology.NodeDescriptor
	Pid  int

	proc Proc
	done chan struct{}
}

// Alive reports whether the process has not yet exited.
func (p *NodeProcess) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Manager owns the lifecycle of worker node processes.
type Manager struct {
	runner Runner
	log    logging.Logger
	reg    *metrics.Registry

	mu    sync.Mutex
	procs map[int]*NodeProcess
}

// NewManager creates a manager backed by os/exec.
func NewManager(log logging.Logger, reg *metrics.Registry) *Manager {
	return NewManagerWithRunner(NewExecRunner(), log, reg)
}

// NewManagerWithRunner creates a manager with a custom runner. Tests use
// this to avoid touching real processes.
func NewManagerWithRunner(runner Runner, log logging.Logger, reg *metrics.Registry) *Manager {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	return &Manager{
		runner: runner,
		log:    log,
		reg:    reg,
		procs:  make(map[int]*NodeProcess),
	}
}

// EnsureBinary returns the absolute path of the worker binary, building it
// from sourceDir when it does not exist yet. A failed build is fatal for
// the whole run.
func (m *Manager) EnsureBinary(binary, sourceDir string) (string, error) {
	if binary == "" {
		binary = filepath.Join(sourceDir, DefaultBinaryName)
	}
	abs, err := filepath.Abs(binary)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(abs); err == nil {
		m.log.Debug("worker binary found", logging.Path(abs))
		return abs, nil
	}

	m.log.Info("building worker binary", logging.Path(abs), logging.String("source", sourceDir))
	timer := logging.StartTimer(m.log, "worker build", logging.Path(abs))

	out, err := m.runner.CombinedOutput(sourceDir, "go", "build", "-o", abs, "./")
	if err != nil {
		timer.EndError(err)
		return "", fmt.Errorf("%w: %v\n%s", ErrBuildFailed, err, string(out))
	}
	timer.End()
	return abs, nil
}

// Spawn starts one worker node: <binary> <id> <port> <peer_ids>. Output is
// discarded; the harness only tracks the process handle.
func (m *Manager) Spawn(node topology.NodeDescriptor, binary string, peerIDs []int) (*NodeProcess, error) {
	m.mu.Lock()
	if _, ok := m.procs[node.ID]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: id %d", ErrAlreadySpawned, node.ID)
	}
	m.mu.Unlock()

	peers := make([]string, len(peerIDs))
	for i, id := range peerIDs {
		peers[i] = strconv.Itoa(id)
	}

	proc, err := m.runner.Start(binary, strconv.Itoa(node.ID), strconv.Itoa(node.Port), strings.Join(peers, ","))
	if err != nil {
		return nil, fmt.Errorf("%w: node %d: %v", ErrSpawnFailed, node.ID, err)
	}

	np := &NodeProcess{
		Node: node,
		Pid:  proc.Pid(),
		proc: proc,
		done: make(chan struct{}),
	}

	go func() {
		proc.Wait()
		close(np.done)
		m.reg.ProcessesAlive.Dec()
	}()

	m.mu.Lock()
	m.procs[node.ID] = np
	m.mu.Unlock()

	m.reg.NodesSpawnedTotal.Inc()
	m.reg.ProcessesAlive.Inc()
	m.log.Info("node spawned",
		logging.NodeID(node.ID),
		logging.Port(node.Port),
		logging.Pid(np.Pid))

	return np, nil
}

// Processes returns the spawned nodes in node-ID order.
func (m *Manager) Processes() []*NodeProcess {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*NodeProcess, 0, len(m.procs))
	for _, p := range m.procs {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Node.ID < out[j].Node.ID })
	return out
}

// AliveCount returns how many spawned nodes are still running.
func (m *Manager) AliveCount() int {
	n := 0
	for _, p := range m.Processes() {
		if p.Alive() {
			n++
		}
	}
	return n
}

// TerminateAll stops every spawned node: interrupt first, kill after a
// grace period. Best-effort and idempotent; errors are logged, not
// returned.
func (m *Manager) TerminateAll() {
	m.mu.Lock()
	procs := make([]*NodeProcess, 0, len(m.procs))
	for _, p := range m.procs {
		procs = append(procs, p)
	}
	m.procs = make(map[int]*NodeProcess)
	m.mu.Unlock()

	for _, p := range procs {
		if !p.Alive() {
			continue
		}
		if err := p.proc.Signal(os.Interrupt); err != nil {
			m.log.Debug("interrupt failed", logging.NodeID(p.Node.ID), logging.Error(err))
		}
		select {
		case <-p.done:
		case <-time.After(terminateGrace):
			if err := p.proc.Kill(); err != nil {
				m.log.Debug("kill failed", logging.NodeID(p.Node.ID), logging.Error(err))
			}
		}
		m.reg.NodesTerminatedTotal.Inc()
		m.log.Info("node terminated", logging.NodeID(p.Node.ID), logging.Pid(p.Pid))
	}
}

// KillPattern clears leftover worker processes from previous runs with a
// pattern kill. Always best-effort: a non-zero exit just means nothing
// matched.
func (m *Manager) KillPattern(pattern string) {
	if pattern == "" {
		return
	}
	if out, err := m.runner.CombinedOutput("", "pkill", "-f", pattern); err != nil {
		m.log.Debug("pattern kill", logging.String("pattern", pattern),
			logging.String("output", string(out)), logging.Error(err))
	}
}
