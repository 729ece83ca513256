package stats

import (
	"math"
	"slices"
	"time"
)

// LatencySummary describes the latency distribution of the successful
// operations in a run.
type LatencySummary struct {
	Count  int           `json:"count"`
	Avg    time.Duration `json:"avg_ns"`
	Min    time.Duration `json:"min_ns"`
	Max    time.Duration `json:"max_ns"`
	P50    time.Duration `json:"p50_ns"`
	P90    time.Duration `json:"p90_ns"`
	P99    time.Duration `json:"p99_ns"`
	StdDev time.Duration `json:"stddev_ns"`
}

// SummarizeLatencies computes the distribution over the successful
// outcomes. Percentiles are read straight from the sorted set at index
// n*q/100; the standard deviation is the population form. Returns false
// when nothing succeeded.
func SummarizeLatencies(outcomes []OperationOutcome) (LatencySummary, bool) {
	lats := make([]time.Duration, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Success {
			lats = append(lats, o.Latency())
		}
	}
	if len(lats) == 0 {
		return LatencySummary{}, false
	}
	slices.Sort(lats)

	n := len(lats)
	var sum time.Duration
	for _, l := range lats {
		sum += l
	}
	avg := sum / time.Duration(n)

	var variance float64
	avgF := float64(avg)
	for _, l := range lats {
		diff := float64(l) - avgF
		variance += diff * diff
	}
	variance /= float64(n)

	return LatencySummary{
		Count:  n,
		Avg:    avg,
		Min:    lats[0],
		Max:    lats[n-1],
		P50:    lats[n*50/100],
		P90:    lats[n*90/100],
		P99:    lats[n*99/100],
		StdDev: time.Duration(math.Sqrt(variance)),
	}, true
}
