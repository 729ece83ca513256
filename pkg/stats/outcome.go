// Package stats turns raw per-operation outcomes into throughput reports.
// The arithmetic is deliberately simple and exact: ops/sec is successful
// count over wall-clock elapsed, and a suite's headline number is the
// arithmetic mean of its category rates, not a weighted global rate.
package stats

import "time"

// OpType labels a benchmark operation category.
type OpType string

const (
	OpPut   OpType = "PUT"
	OpGet   OpType = "GET"
	OpMixed OpType = "MIXED"
)

// OperationOutcome records one dispatched operation. Workers own their
// outcome until the run completes; afterwards the slice is read-only.
type OperationOutcome struct {
	Index   int
	OpType  OpType
	Success bool
	Start   time.Time
	End     time.Time
	Err     error
}

// Latency is the wall-clock time the operation took.
func (o OperationOutcome) Latency() time.Duration {
	return o.End.Sub(o.Start)
}
