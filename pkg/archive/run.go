// Package archive persists benchmark results. It offers three sinks: an
// indented JSON file with the run record, a snappy-compressed dump of every
// per-operation outcome, and an optional PostgreSQL store for cross-run
// history. Sinks are independent; a bench invocation may use any subset.
package archive

import (
	"time"

	"github.com/google/uuid"

	"github.com/relaykv/harness/pkg/stats"
)

// Run is the durable record of one benchmark invocation.
type Run struct {
	ID               uuid.UUID             `json:"id"`
	StartedAt        time.Time             `json:"started_at"`
	Mode             string                `json:"mode"`
	Ops              int                   `json:"ops"`
	Concurrency      int                   `json:"concurrency"`
	Reports          []stats.Report        `json:"reports"`
	MeanOpsPerSecond float64               `json:"mean_ops_per_sec"`
	Latency          *stats.LatencySummary `json:"latency,omitempty"`
}

// NewRun stamps a fresh run record with a random ID and the current time.
// Reports are attached later via Finish.
func NewRun(mode string, ops, concurrency int) *Run {
	return &Run{
		ID:          uuid.New(),
		StartedAt:   time.Now().UTC(),
		Mode:        mode,
		Ops:         ops,
		Concurrency: concurrency,
	}
}

// Finish attaches the category reports and derives the headline rate.
func (r *Run) Finish(reports []stats.Report) {
	r.Reports = reports
	r.MeanOpsPerSecond = stats.MeanRate(reports)
}
