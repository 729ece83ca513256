package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/relaykv/harness/pkg/bootstrap"
	"github.com/relaykv/harness/pkg/events"
	"github.com/relaykv/harness/pkg/logging"
	"github.com/relaykv/harness/pkg/metrics"
	"github.com/relaykv/harness/pkg/process"
	"github.com/relaykv/harness/pkg/status"
	"github.com/relaykv/harness/pkg/topology"
)

var (
	upConfig     string
	upSource     string
	upBinary     string
	upStatusAddr string
	upEvents     string
	upNoWait     bool
)

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Start the cluster and wait for a leader",
	Long: `Bring a relayd cluster from nothing to an elected leader: build the
worker binary when missing, clear leftover processes, spawn every node,
wire the full peer mesh over the control-plane API, signal readiness,
and watch the election.

The harness then holds the cluster up until SIGINT or SIGTERM and
terminates the node processes on the way out. With --no-wait it exits
after the report and leaves the cluster running.

A cluster that never elects a leader is reported but is not an error;
the exit code is non-zero only when the worker binary cannot be built.`,
	RunE: runUp,
}

func init() {
	f := upCmd.Flags()
	f.StringVar(&upConfig, "config", "", "Cluster topology YAML (default: 3 nodes on 127.0.0.1:8080-8082)")
	f.StringVar(&upSource, "source", "./relayd", "Worker source directory, used when the binary must be built")
	f.StringVar(&upBinary, "binary", "", "Worker binary path (default: <source>/relayd)")
	f.StringVar(&upStatusAddr, "status-addr", ":9100", "Health and metrics listener address; empty disables")
	f.StringVar(&upEvents, "events", "tcp://127.0.0.1:9101", "Event feed PUB address; empty disables")
	f.BoolVar(&upNoWait, "no-wait", false, "Exit after the bootstrap report and leave the cluster running")
	rootCmd.AddCommand(upCmd)
}

var bannerStyle = lipgloss.NewStyle().Bold(true)

func banner(title string) {
	rule := strings.Repeat("=", 60)
	fmt.Println(rule)
	fmt.Println(bannerStyle.Render(title))
	fmt.Println(rule)
}

func runUp(cmd *cobra.Command, args []string) error {
	log := newLogger()
	reg := metrics.DefaultRegistry()

	topo, err := topology.LoadOrDefault(upConfig)
	if err != nil {
		return err
	}

	banner("RelayKV - Cluster Startup")
	fmt.Println()

	procs := process.NewManager(log, reg)

	binPath := upBinary
	if binPath == "" {
		binPath = filepath.Join(upSource, process.DefaultBinaryName)
	}
	_, statErr := os.Stat(binPath)
	prebuilt := statErr == nil
	if prebuilt {
		fmt.Println("✓ Worker binary found")
	} else {
		fmt.Println("Worker binary not found. Building...")
	}
	bin, err := procs.EnsureBinary(upBinary, upSource)
	if err != nil {
		fmt.Println("Failed to build worker binary. Make sure Go is installed.")
		return err
	}
	if !prebuilt {
		fmt.Println("✓ Worker binary built successfully")
	}

	bus := events.NewBus(reg)
	defer bus.Shutdown()
	var feed *events.Feed
	if upEvents != "" {
		fcfg := events.DefaultFeedConfig()
		fcfg.Address = upEvents
		f, ferr := events.NewFeed(events.NewMangosSocketFactory(), fcfg, log, reg)
		if ferr == nil {
			ferr = f.Start()
		}
		if ferr != nil {
			// Observability only; a dead feed never blocks the cluster.
			log.Warn("event feed unavailable", logging.Addr(upEvents), logging.Error(ferr))
		} else {
			feed = f
			defer f.Stop()
		}
	}
	emitter := events.NewEmitter(bus, feed, log)

	var leaderUp atomic.Bool
	if upStatusAddr != "" {
		checker := status.NewChecker()
		checker.RegisterCheck("processes", status.ProcessesCheck(topo.Size(), procs.AliveCount))
		checker.RegisterCheck("leader", status.LeaderCheck(leaderUp.Load))
		checker.RegisterCheck("feed", status.FeedCheck(bus.SubscriberCount))
		checker.RegisterReadinessCheck("leader", status.LeaderCheck(leaderUp.Load))
		checker.RegisterLivenessCheck("alive", status.SimpleCheck("alive"))

		srv := status.NewServer(upStatusAddr, checker, reg, log)
		go func() {
			if serr := srv.Start(); serr != nil {
				log.Error("status listener failed", logging.Error(serr))
			}
		}()
		defer srv.Shutdown(5 * time.Second)
	}

	orch := bootstrap.New(topo, bootstrap.DefaultConfig(), bootstrap.Deps{
		Processes: procs,
		Log:       log,
		Metrics:   reg,
		Emitter:   emitter,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Cleaning up existing processes...")
	orch.Cleanup(ctx)

	fmt.Println()
	fmt.Printf("Starting %d-node cluster...\n", topo.Size())
	spawned, _ := orch.SpawnAll(ctx, bin)
	if spawned == topo.Size() {
		fmt.Println("✓ All nodes started")
	} else {
		fmt.Printf("⚠ %d/%d nodes started\n", spawned, topo.Size())
	}

	fmt.Println("Connecting nodes...")
	addrs := orch.ResolveAddresses(ctx)
	for _, node := range topo.Nodes {
		if addr, ok := addrs[node.ID]; ok {
			fmt.Printf("  Node %d: %s\n", node.ID, addr)
		} else {
			fmt.Printf("  ⚠ Could not get address for node %d\n", node.ID)
		}
	}
	orch.ConnectMesh(ctx, addrs)
	orch.SignalReady(ctx)
	fmt.Println("✓ Nodes connected")

	fmt.Println()
	fmt.Println("Waiting for leader election...")
	lead, _ := orch.DiscoverLeader(ctx)

	if ctx.Err() != nil {
		fmt.Println()
		fmt.Println("Shutting down...")
		procs.TerminateAll()
		return nil
	}

	leaderUp.Store(lead.Found)

	fmt.Println()
	if lead.Found {
		banner("✓ Cluster is running!")
		if node, nerr := topo.Node(lead.NodeID); nerr == nil {
			fmt.Printf("Leader: Node %d on port %d\n", lead.NodeID, node.Port)
		} else {
			fmt.Printf("Leader: Node %d at %s\n", lead.NodeID, lead.URL)
		}
		fmt.Println()
		fmt.Println("Benchmark it with:")
		fmt.Println("  relay-harness bench")
	} else {
		fmt.Println("⚠ Cluster started but no leader found yet.")
		fmt.Println("Check the node processes for details.")
	}

	if upNoWait {
		return nil
	}

	fmt.Println()
	fmt.Println("To stop: press Ctrl+C")
	<-ctx.Done()
	fmt.Println()
	fmt.Println("Shutting down...")
	procs.TerminateAll()
	return nil
}
