package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/relaykv/harness/pkg/controlplane"
	"github.com/relaykv/harness/pkg/events"
	"github.com/relaykv/harness/pkg/logging"
	"github.com/relaykv/harness/pkg/metrics"
	"github.com/relaykv/harness/pkg/process"
	"github.com/relaykv/harness/pkg/topology"
)

// fakeElection decides who leads the fake cluster: node 0, but only once
// every node has been told the mesh is ready.
type fakeElection struct {
	mu        sync.Mutex
	ready     map[int]bool
	total     int
	electable bool
}

func (e *fakeElection) markReady(id int) {
	e.mu.Lock()
	e.ready[id] = true
	e.mu.Unlock()
}

func (e *fakeElection) leaderID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.electable || len(e.ready) < e.total {
		return -1
	}
	return 0
}

func (e *fakeElection) readyCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.ready)
}

// fakeWorker is one in-process stand-in for a consensus node, speaking the
// same control endpoints over a real HTTP listener.
type fakeWorker struct {
	id         int
	advertised string
	election   *fakeElection
	srv        *httptest.Server

	mu    sync.Mutex
	peers map[int]string
}

func (w *fakeWorker) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /listen_addr", func(rw http.ResponseWriter, r *http.Request) {
		json.NewEncoder(rw).Encode(map[string]string{"address": w.advertised})
	})
	mux.HandleFunc("POST /connect_peer", func(rw http.ResponseWriter, r *http.Request) {
		var req struct {
			PeerID  int    `json:"peer_id"`
			Address string `json:"address"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(rw, err.Error(), http.StatusBadRequest)
			return
		}
		w.mu.Lock()
		w.peers[req.PeerID] = req.Address
		w.mu.Unlock()
	})
	mux.HandleFunc("POST /ready", func(rw http.ResponseWriter, r *http.Request) {
		w.election.markReady(w.id)
	})
	mux.HandleFunc("GET /is_leader", func(rw http.ResponseWriter, r *http.Request) {
		json.NewEncoder(rw).Encode(map[string]bool{"is_leader": w.election.leaderID() == w.id})
	})
	return mux
}

func (w *fakeWorker) peerSnapshot() map[int]string {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := make(map[int]string, len(w.peers))
	for id, addr := range w.peers {
		snap[id] = addr
	}
	return snap
}

func startFakeCluster(t *testing.T, size int, electable bool) ([]*fakeWorker, topology.Topology) {
	t.Helper()
	election := &fakeElection{ready: make(map[int]bool), total: size, electable: electable}

	workers := make([]*fakeWorker, 0, size)
	nodes := make([]topology.NodeDescriptor, 0, size)
	for i := 0; i < size; i++ {
		w := &fakeWorker{
			id:         i,
			advertised: fmt.Sprintf("127.0.0.1:%d", 9100+i),
			election:   election,
			peers:      make(map[int]string),
		}
		w.srv = httptest.NewServer(w.handler())
		t.Cleanup(w.srv.Close)

		u, err := url.Parse(w.srv.URL)
		require.NoError(t, err)
		host, portStr, err := net.SplitHostPort(u.Host)
		require.NoError(t, err)
		port, err := strconv.Atoi(portStr)
		require.NoError(t, err)

		nodes = append(nodes, topology.NodeDescriptor{
			ID: i, Name: fmt.Sprintf("node-%d", i), Host: host, Port: port,
		})
		workers = append(workers, w)
	}
	return workers, topology.Topology{Nodes: nodes}
}

// stubProc pretends to be a running worker until it is signaled.
type stubProc struct {
	pid    int
	once   sync.Once
	exited chan struct{}
}

func (p *stubProc) Pid() int { return p.pid }

func (p *stubProc) Signal(sig os.Signal) error {
	p.once.Do(func() { close(p.exited) })
	return nil
}

func (p *stubProc) Kill() error {
	p.once.Do(func() { close(p.exited) })
	return nil
}

func (p *stubProc) Wait() error {
	<-p.exited
	return nil
}

type stubRunner struct {
	mu      sync.Mutex
	ran     [][]string
	started [][]string
}

func (r *stubRunner) CombinedOutput(dir, name string, args ...string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ran = append(r.ran, append([]string{dir, name}, args...))
	return []byte("ok"), nil
}

func (r *stubRunner) Start(name string, args ...string) (process.Proc, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, append([]string{name}, args...))
	return &stubProc{pid: 4200 + len(r.started), exited: make(chan struct{})}, nil
}

func drainEvents(sub *events.Subscription) map[events.EventType]int {
	counts := make(map[events.EventType]int)
	for {
		select {
		case evt := <-sub.Channel():
			counts[evt.Type]++
		default:
			return counts
		}
	}
}

func TestBootstrapColdStartToLeader(t *testing.T) {
	workers, topo := startFakeCluster(t, 3, true)

	reg := metrics.NewRegistry()
	log := logging.NewNopLogger()
	bus := events.NewBus(reg)
	defer bus.Shutdown()
	sub := bus.Subscribe(context.Background())
	defer sub.Unsubscribe()

	runner := &stubRunner{}
	procs := process.NewManagerWithRunner(runner, log, reg)
	sleeper := &sleepRecorder{}

	o := New(topo, DefaultConfig(), Deps{
		Processes: procs,
		Control:   controlplane.New(),
		Log:       log,
		Metrics:   reg,
		Emitter:   events.NewEmitter(bus, nil, log),
		Sleep:     sleeper.sleep,
	})

	t.Log("=== Bootstrap: cold start to elected leader ===")
	lead, err := o.Run(context.Background(), "/tmp/relayd")
	require.NoError(t, err)

	t.Log("Step 1: cleanup sweep")
	require.NotEmpty(t, runner.ran, "cleanup runs before anything spawns")
	require.Equal(t, []string{"", "pkill", "-f", "relayd"}, runner.ran[0])
	t.Log("✓ leftover workers cleared")

	t.Log("Step 2: spawn sweep")
	require.Len(t, runner.started, 3, "every node gets its own process")
	require.Equal(t,
		[]string{"/tmp/relayd", "1", strconv.Itoa(topo.Nodes[1].Port), "0,2"},
		runner.started[1])
	require.Equal(t, 3, procs.AliveCount())
	t.Logf("✓ spawned %d workers", len(runner.started))

	t.Log("Step 3: peer mesh")
	for _, w := range workers {
		peers := w.peerSnapshot()
		require.Len(t, peers, 2, "node %d should know both peers", w.id)
		for peerID, addr := range peers {
			require.Equal(t, workers[peerID].advertised, addr,
				"node %d got the wrong address for peer %d", w.id, peerID)
		}
	}
	t.Log("✓ full mesh wired with advertised addresses")

	t.Log("Step 4: readiness")
	require.Equal(t, 3, workers[0].election.readyCount())
	t.Log("✓ all nodes signaled ready")

	t.Log("Step 5: leader")
	require.True(t, lead.Found, "the fake cluster elects once everyone is ready")
	require.Equal(t, 0, lead.NodeID)
	require.Equal(t, workers[0].srv.URL, lead.URL)
	require.Equal(t, 1, lead.Ticks)
	t.Logf("✓ node %d leads at %s", lead.NodeID, lead.URL)

	counts := drainEvents(sub)
	require.Equal(t, 6, counts[events.EvtPhaseStarted])
	require.Equal(t, 6, counts[events.EvtPhaseCompleted])
	require.Equal(t, 3, counts[events.EvtNodeSpawned])
	require.Equal(t, 3, counts[events.EvtAddressResolved])
	require.Equal(t, 6, counts[events.EvtPeerConnected])
	require.Equal(t, 3, counts[events.EvtReadySignaled])
	require.Equal(t, 1, counts[events.EvtLeaderFound])
	t.Log("✓ event feed saw the whole story")

	o.Processes().TerminateAll()
	require.Equal(t, 0, o.Processes().AliveCount())
	t.Log("✓ cluster torn down")
}

func TestBootstrapReportsUnelectedCluster(t *testing.T) {
	_, topo := startFakeCluster(t, 3, false)

	reg := metrics.NewRegistry()
	log := logging.NewNopLogger()
	bus := events.NewBus(reg)
	defer bus.Shutdown()
	sub := bus.Subscribe(context.Background())
	defer sub.Unsubscribe()

	cfg := DefaultConfig()
	cfg.LeaderPolicy.MaxAttempts = 3

	o := New(topo, cfg, Deps{
		Processes: process.NewManagerWithRunner(&stubRunner{}, log, reg),
		Control:   controlplane.New(),
		Log:       log,
		Metrics:   reg,
		Emitter:   events.NewEmitter(bus, nil, log),
		Sleep:     (&sleepRecorder{}).sleep,
	})

	lead, err := o.Run(context.Background(), "/tmp/relayd")
	require.NoError(t, err, "a cluster that never elects is an outcome, not an error")
	require.False(t, lead.Found)
	require.Equal(t, 3, lead.Ticks)

	counts := drainEvents(sub)
	require.Equal(t, 1, counts[events.EvtLeaderExhausted])
	require.Zero(t, counts[events.EvtLeaderFound])
}

func TestBootstrapStopsOnCancel(t *testing.T) {
	_, topo := startFakeCluster(t, 3, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &stubRunner{}
	o := New(topo, DefaultConfig(), Deps{
		Processes: process.NewManagerWithRunner(runner, logging.NewNopLogger(), metrics.NewRegistry()),
		Control:   controlplane.New(),
		Sleep:     (&sleepRecorder{}).sleep,
	})

	_, err := o.Run(ctx, "/tmp/relayd")
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, runner.started, "nothing spawns after cancellation")
}
