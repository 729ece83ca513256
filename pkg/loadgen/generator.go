package loadgen

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/relaykv/harness/pkg/events"
	"github.com/relaykv/harness/pkg/kv"
	"github.com/relaykv/harness/pkg/logging"
	"github.com/relaykv/harness/pkg/metrics"
	"github.com/relaykv/harness/pkg/retry"
	"github.com/relaykv/harness/pkg/stats"
)

const (
	// settle matches the pause the cluster gets after seeding or warmup
	// writes, letting commits land before the timed run starts.
	settle = 500 * time.Millisecond

	progressEvery = 25
)

func (a Action) String() string {
	if a == ActionGet {
		return "get"
	}
	return "put"
}

// Generator dispatches planned operations against one store (the leader)
// and collects outcomes. Per-operation failures are recorded, never
// propagated: a run always yields exactly one outcome per descriptor.
type Generator struct {
	store kv.Store
	log   logging.Logger
	reg   *metrics.Registry
	emit  *events.Emitter
	sleep retry.SleepFunc
}

func NewGenerator(store kv.Store, log logging.Logger, reg *metrics.Registry, emit *events.Emitter, sleep retry.SleepFunc) *Generator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	if sleep == nil {
		sleep = retry.Sleep
	}
	return &Generator{store: store, log: log, reg: reg, emit: emit, sleep: sleep}
}

// Warmup issues n best-effort writes and lets the cluster settle. Returns
// how many writes landed.
func (g *Generator) Warmup(ctx context.Context, n int) int {
	if n <= 0 {
		return 0
	}
	landed := 0
	for _, d := range WarmupDescriptors(n) {
		if ctx.Err() != nil {
			break
		}
		if err := g.store.Put(ctx, d.Key, d.Value); err == nil {
			landed++
		}
	}
	g.sleep(ctx, settle)
	g.log.Info("warmup complete", logging.Count(landed))
	return landed
}

// RunPut runs the sequential PUT category.
func (g *Generator) RunPut(ctx context.Context, n int) (stats.Report, []stats.OperationOutcome) {
	out, elapsed := g.execute(ctx, stats.OpPut, PutDescriptors(n), 1)
	return g.report(stats.OpPut, out, elapsed), out
}

// RunGet seeds the category's keys with best-effort writes, settles, then
// runs the sequential GET category. A read only counts when the key is
// found.
func (g *Generator) RunGet(ctx context.Context, n int) (stats.Report, []stats.OperationOutcome) {
	g.seed(ctx, PutDescriptors(n))
	out, elapsed := g.execute(ctx, stats.OpGet, GetDescriptors(n), 1)
	return g.report(stats.OpGet, out, elapsed), out
}

// RunMixed runs the alternating PUT/GET category.
func (g *Generator) RunMixed(ctx context.Context, n int) (stats.Report, []stats.OperationOutcome) {
	out, elapsed := g.execute(ctx, stats.OpMixed, MixedDescriptors(n), 1)
	return g.report(stats.OpMixed, out, elapsed), out
}

// RunConcurrentPut pushes n writes through a pool of the given size.
func (g *Generator) RunConcurrentPut(ctx context.Context, n, workers int) (stats.Report, []stats.OperationOutcome) {
	out, elapsed := g.execute(ctx, stats.OpPut, ConcurrentPutDescriptors(n), workers)
	return g.report(stats.OpPut, out, elapsed), out
}

func (g *Generator) seed(ctx context.Context, descs []OpDescriptor) {
	for _, d := range descs {
		if ctx.Err() != nil {
			return
		}
		_ = g.store.Put(ctx, d.Key, d.Value)
	}
	g.sleep(ctx, settle)
}

// execute dispatches every descriptor and returns the outcomes with the
// run's wall-clock time. Each descriptor owns the outcome slot at its
// index, so pooled workers write without coordination; Wait publishes the
// slots before anyone reads them.
func (g *Generator) execute(ctx context.Context, category stats.OpType, descs []OpDescriptor, workers int) ([]stats.OperationOutcome, time.Duration) {
	outcomes := make([]stats.OperationOutcome, len(descs))
	for _, d := range descs {
		outcomes[d.Index] = stats.OperationOutcome{Index: d.Index, OpType: d.opType()}
	}

	start := time.Now()
	if workers <= 1 {
		for i, d := range descs {
			outcomes[d.Index] = g.perform(ctx, d)
			g.progress(category, i+1, len(descs))
		}
	} else {
		pool := newWorkerPool(workers, g.log)
		var completed atomic.Int64
		for _, d := range descs {
			pool.Submit(func() {
				outcomes[d.Index] = g.perform(ctx, d)
				g.progress(category, int(completed.Add(1)), len(descs))
			})
		}
		pool.Wait()
	}
	return outcomes, time.Since(start)
}

func (g *Generator) perform(ctx context.Context, d OpDescriptor) stats.OperationOutcome {
	out := stats.OperationOutcome{Index: d.Index, OpType: d.opType(), Start: time.Now()}

	switch d.Action {
	case ActionGet:
		_, found, err := g.store.Get(ctx, d.Key)
		out.End = time.Now()
		out.Err = err
		out.Success = err == nil && (found || !d.RequireFound)
	default:
		err := g.store.Put(ctx, d.Key, d.Value)
		out.End = time.Now()
		out.Err = err
		out.Success = err == nil
	}

	status := "success"
	if !out.Success {
		status = "failure"
		g.log.Debug("operation failed",
			logging.Int("index", d.Index),
			logging.Operation(d.Action.String()),
			logging.Key(d.Key),
			logging.Error(out.Err))
	}
	g.reg.RecordOperation(d.Action.String(), status, out.Latency())
	return out
}

func (g *Generator) progress(category stats.OpType, completed, total int) {
	if completed%progressEvery != 0 && completed != total {
		return
	}
	g.emit.Emit(events.EvtBenchmarkProgress, events.BenchmarkPayload{
		OpType: string(category), Completed: completed, Total: total,
	})
}

func (g *Generator) report(category stats.OpType, outcomes []stats.OperationOutcome, elapsed time.Duration) stats.Report {
	rep := stats.Summarize(category, outcomes, elapsed)
	g.reg.SetBenchmarkRate(string(category), rep.OpsPerSecond)
	g.emit.Emit(events.EvtBenchmarkCompleted, events.BenchmarkPayload{
		OpType:       string(category),
		Completed:    rep.Successful,
		Total:        rep.Operations,
		OpsPerSecond: rep.OpsPerSecond,
	})
	g.log.Info("category complete",
		logging.Operation(string(category)),
		logging.Count(rep.Successful),
		logging.Latency(elapsed))
	return rep
}
