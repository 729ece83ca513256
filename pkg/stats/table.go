package stats

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// WriteTable renders the suite summary table: one row per category, the
// success column as successful/total.
func WriteTable(w io.Writer, reports []Report) {
	fmt.Fprintf(w, "%-15s %-15s %-15s %-15s\n", "Operation", "Ops/sec", "Time (s)", "Success")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, r := range reports {
		fmt.Fprintf(w, "%-15s %13.2f %13.2f %14d/%d\n",
			string(r.OpType), r.OpsPerSecond, r.Elapsed.Seconds(), r.Successful, r.Operations)
	}
}

// WriteLatency renders a latency distribution block, one figure per line,
// rounded to the microsecond.
func WriteLatency(w io.Writer, s LatencySummary) {
	fmt.Fprintf(w, "  avg:     %s\n", s.Avg.Round(time.Microsecond))
	fmt.Fprintf(w, "  p50:     %s\n", s.P50.Round(time.Microsecond))
	fmt.Fprintf(w, "  p90:     %s\n", s.P90.Round(time.Microsecond))
	fmt.Fprintf(w, "  p99:     %s\n", s.P99.Round(time.Microsecond))
	fmt.Fprintf(w, "  min:     %s\n", s.Min.Round(time.Microsecond))
	fmt.Fprintf(w, "  max:     %s\n", s.Max.Round(time.Microsecond))
	fmt.Fprintf(w, "  stddev:  %s\n", s.StdDev.Round(time.Microsecond))
}
