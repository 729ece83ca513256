// Package loadgen drives PUT/GET traffic against the cluster leader and
// hands back one outcome per dispatched operation, no matter how many of
// them fail. Dispatch is sequential or through a bounded worker pool; the
// operation list is built up front and immutable during the run.
package loadgen

import (
	"github.com/relaykv/harness/pkg/validation"
)

// Mode selects which benchmark the harness runs.
type Mode string

const (
	// ModeSuite runs the sequential PUT, GET, and MIXED categories.
	ModeSuite Mode = "suite"
	// ModeConcurrent runs PUT traffic through the worker pool.
	ModeConcurrent Mode = "concurrent"
)

const (
	DefaultOps         = 100
	DefaultWarmupOps   = 10
	DefaultConcurrency = 10
)

// Config holds the benchmark knobs.
type Config struct {
	Ops         int  `yaml:"ops"`
	Warmup      int  `yaml:"warmup"`
	Concurrency int  `yaml:"concurrency"`
	Mode        Mode `yaml:"mode"`
}

// DefaultConfig mirrors the historical defaults: 100 ops per category,
// 10 warmup writes, 10 workers.
func DefaultConfig() Config {
	return Config{
		Ops:         DefaultOps,
		Warmup:      DefaultWarmupOps,
		Concurrency: DefaultConcurrency,
		Mode:        ModeSuite,
	}
}

func (c Config) Validate() error {
	return validation.NewConfigValidator("loadgen").
		Positive("ops", c.Ops).
		NonNegative("warmup", c.Warmup).
		Positive("concurrency", c.Concurrency).
		OneOf("mode", string(c.Mode), []string{string(ModeSuite), string(ModeConcurrent)}).
		Validate()
}

// Normalize fills zero fields with defaults.
func (c Config) Normalize() Config {
	c.Ops = validation.DefaultOrInt(c.Ops, DefaultOps)
	c.Concurrency = validation.DefaultOrInt(c.Concurrency, DefaultConcurrency)
	// Zero warmup means "skip warmup", so only negatives are clamped.
	if c.Warmup < 0 {
		c.Warmup = 0
	}
	if c.Mode == "" {
		c.Mode = ModeSuite
	}
	return c
}
