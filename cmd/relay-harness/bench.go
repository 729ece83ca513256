package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/relaykv/harness/pkg/archive"
	"github.com/relaykv/harness/pkg/bootstrap"
	"github.com/relaykv/harness/pkg/controlplane"
	"github.com/relaykv/harness/pkg/events"
	"github.com/relaykv/harness/pkg/kv"
	"github.com/relaykv/harness/pkg/loadgen"
	"github.com/relaykv/harness/pkg/logging"
	"github.com/relaykv/harness/pkg/metrics"
	"github.com/relaykv/harness/pkg/retry"
	"github.com/relaykv/harness/pkg/stats"
	"github.com/relaykv/harness/pkg/topology"
)

var (
	benchConfig      string
	benchOps         int
	benchWarmup      int
	benchConcurrency int
	benchMode        string
	benchOut         string
	benchDump        string
	benchPGDSN       string
	benchEvents      string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Benchmark put/get throughput against the cluster leader",
	Long: `Run a throughput benchmark against the elected leader of a running
cluster. The command performs a single leader scan and exits non-zero
when no node claims leadership.

Suite mode measures sequential PUT, GET, and mixed PUT/GET categories
and reports per-category throughput plus the mean across categories.
Concurrent mode pushes PUT traffic through a bounded worker pool.

Results can be archived to a JSON file, appended to a compressed
per-operation dump, and recorded in a Postgres database.`,
	RunE: runBench,
}

func init() {
	f := benchCmd.Flags()
	f.StringVar(&benchConfig, "config", "", "Cluster topology YAML (default: 3 nodes on 127.0.0.1:8080-8082)")
	f.IntVarP(&benchOps, "ops", "n", loadgen.DefaultOps, "Operations per category")
	f.IntVar(&benchWarmup, "warmup", loadgen.DefaultWarmupOps, "Warmup writes before measuring (0 skips)")
	f.IntVarP(&benchConcurrency, "concurrency", "t", loadgen.DefaultConcurrency, "Worker count for concurrent mode")
	f.StringVar(&benchMode, "mode", string(loadgen.ModeSuite), "Benchmark mode: suite or concurrent")
	f.StringVar(&benchOut, "out", "", "Write the run result to this JSON file")
	f.StringVar(&benchDump, "dump-outcomes", "", "Append per-operation outcomes to this compressed dump file")
	f.StringVar(&benchPGDSN, "pg-dsn", "", "Record the run in this Postgres database (pgx DSN)")
	f.StringVar(&benchEvents, "events", "", "Publish benchmark progress on this event feed address")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg := loadgen.Config{
		Ops:         benchOps,
		Warmup:      benchWarmup,
		Concurrency: benchConcurrency,
		Mode:        loadgen.Mode(benchMode),
	}.Normalize()
	if err := cfg.Validate(); err != nil {
		return err
	}

	topo, err := topology.LoadOrDefault(benchConfig)
	if err != nil {
		return err
	}

	log := newLogger()
	reg := metrics.DefaultRegistry()
	ctx := cmd.Context()

	if cfg.Mode == loadgen.ModeConcurrent {
		banner("RelayKV - Concurrent Performance Benchmark")
	} else {
		banner("RelayKV - Performance Benchmark")
	}
	fmt.Println()

	// One scan, not an election watch: benchmarking a cluster without a
	// leader is an operator error.
	fmt.Println("Finding leader...")
	disc := bootstrap.NewLeaderDiscoverer(controlplane.New(), bootstrap.DefaultLeaderPolicy(), retry.Sleep, log, reg, nil)
	lead, ok := disc.ScanOnce(ctx, topo)
	if !ok {
		fmt.Println("❌ No leader found! Make sure the cluster is running.")
		fmt.Println("   Start it with: relay-harness up")
		os.Exit(1)
	}

	if node, nerr := topo.Node(lead.NodeID); nerr == nil {
		fmt.Printf("✓ Leader found: Node %d on port %d\n", lead.NodeID, node.Port)
	} else {
		fmt.Printf("✓ Leader found: Node %d at %s\n", lead.NodeID, lead.URL)
	}
	fmt.Println()

	var emitter *events.Emitter
	if benchEvents != "" {
		fcfg := events.DefaultFeedConfig()
		fcfg.Address = benchEvents
		feed, ferr := events.NewFeed(events.NewMangosSocketFactory(), fcfg, log, reg)
		if ferr == nil {
			ferr = feed.Start()
		}
		if ferr != nil {
			log.Warn("event feed unavailable", logging.Addr(benchEvents), logging.Error(ferr))
		} else {
			defer feed.Stop()
			emitter = events.NewEmitter(nil, feed, log)
		}
	}

	gen := loadgen.NewGenerator(kv.New(lead.URL), log, reg, emitter, retry.Sleep)

	if cfg.Warmup > 0 {
		if cfg.Mode == loadgen.ModeConcurrent {
			fmt.Println("Warming up...")
		} else {
			fmt.Printf("Warming up with %d operations...\n", cfg.Warmup)
		}
		gen.Warmup(ctx, cfg.Warmup)
		fmt.Println("✓ Warmup complete")
		fmt.Println()
	}

	var reports []stats.Report
	var outcomes []stats.OperationOutcome

	if cfg.Mode == loadgen.ModeConcurrent {
		fmt.Printf("Benchmarking %d operations with %d concurrent threads...\n", cfg.Ops, cfg.Concurrency)
		rep, outs := gen.RunConcurrentPut(ctx, cfg.Ops, cfg.Concurrency)
		reports = append(reports, rep)
		outcomes = append(outcomes, outs...)

		fmt.Println()
		banner("Results")
		fmt.Printf("Operations: %d/%d successful\n", rep.Successful, rep.Operations)
		fmt.Printf("Time: %.2f seconds\n", rep.Elapsed.Seconds())
		fmt.Printf("Throughput: %.2f ops/sec\n", rep.OpsPerSecond)
		fmt.Printf("Concurrency: %d threads\n", cfg.Concurrency)
		if sum, ok := stats.SummarizeLatencies(outs); ok {
			fmt.Println()
			fmt.Println("Latency:")
			stats.WriteLatency(os.Stdout, sum)
		}
		fmt.Println()
	} else {
		categories := []struct {
			label string
			run   func(context.Context, int) (stats.Report, []stats.OperationOutcome)
		}{
			{"PUT", gen.RunPut},
			{"GET", gen.RunGet},
			{"mixed PUT/GET", gen.RunMixed},
		}
		for _, cat := range categories {
			fmt.Printf("Benchmarking %d %s operations...\n", cfg.Ops, cat.label)
			rep, outs := cat.run(ctx, cfg.Ops)
			reports = append(reports, rep)
			outcomes = append(outcomes, outs...)

			fmt.Printf("  ✓ %d/%d successful in %.2fs\n", rep.Successful, rep.Operations, rep.Elapsed.Seconds())
			fmt.Printf("  📊 %.2f ops/sec\n", rep.OpsPerSecond)
			if sum, ok := stats.SummarizeLatencies(outs); ok {
				stats.WriteLatency(os.Stdout, sum)
			}
			fmt.Println()
		}

		banner("Benchmark Summary")
		stats.WriteTable(os.Stdout, reports)
		fmt.Println()
		fmt.Printf("Average throughput: %.2f ops/sec\n", stats.MeanRate(reports))
		fmt.Println()
	}

	run := archive.NewRun(string(cfg.Mode), cfg.Ops, cfg.Concurrency)
	run.Finish(reports)
	if sum, ok := stats.SummarizeLatencies(outcomes); ok {
		run.Latency = &sum
	}

	saveRun(ctx, run, outcomes)
	return nil
}

// saveRun writes the finished run to every configured sink. Sink failures
// warn on stderr; they never fail a benchmark that already ran.
func saveRun(ctx context.Context, run *archive.Run, outcomes []stats.OperationOutcome) {
	if benchOut != "" {
		if err := archive.WriteJSON(benchOut, run); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not save results: %v\n", err)
		} else {
			fmt.Printf("Results saved to %s\n", benchOut)
		}
	}

	if benchDump != "" {
		if err := dumpOutcomes(benchDump, outcomes); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not dump outcomes: %v\n", err)
		} else {
			fmt.Printf("Outcome dump appended to %s\n", benchDump)
		}
	}

	if benchPGDSN != "" {
		if err := recordRun(ctx, benchPGDSN, run); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not record run in Postgres: %v\n", err)
		} else {
			fmt.Printf("Run %s recorded in Postgres\n", run.ID)
		}
	}
}

func dumpOutcomes(path string, outcomes []stats.OperationOutcome) error {
	w, err := archive.NewDumpWriter(path)
	if err != nil {
		return err
	}
	if err := w.AppendAll(outcomes); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func recordRun(ctx context.Context, dsn string, run *archive.Run) error {
	store, err := archive.NewPGStore(ctx, dsn)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.InsertRun(ctx, run)
}
