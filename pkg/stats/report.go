package stats

import "time"

// Report is the derived summary of one operation category. Never mutated
// after Summarize builds it.
type Report struct {
	OpType       OpType        `json:"op_type"`
	Operations   int           `json:"operations"`
	Successful   int           `json:"successful"`
	Failed       int           `json:"failed"`
	Elapsed      time.Duration `json:"elapsed_ns"`
	OpsPerSecond float64       `json:"ops_per_sec"`
}

// Summarize reduces a category's outcomes to a report. A degenerate run
// with zero elapsed time reports zero throughput rather than dividing by
// zero.
func Summarize(opType OpType, outcomes []OperationOutcome, elapsed time.Duration) Report {
	successful := 0
	for _, o := range outcomes {
		if o.Success {
			successful++
		}
	}

	rate := 0.0
	if elapsed > 0 {
		rate = float64(successful) / elapsed.Seconds()
	}

	return Report{
		OpType:       opType,
		Operations:   len(outcomes),
		Successful:   successful,
		Failed:       len(outcomes) - successful,
		Elapsed:      elapsed,
		OpsPerSecond: rate,
	}
}

// MeanRate is the arithmetic mean of the category rates. This is the
// suite's headline number: three categories contribute equally no matter
// how many operations each ran.
func MeanRate(reports []Report) float64 {
	if len(reports) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range reports {
		sum += r.OpsPerSecond
	}
	return sum / float64(len(reports))
}
