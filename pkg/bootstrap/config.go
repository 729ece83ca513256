package bootstrap

import (
	"time"

	"github.com/relaykv/harness/pkg/retry"
	"github.com/relaykv/harness/pkg/validation"
)

// Config holds the pacing and polling knobs for a cluster bootstrap.
type Config struct {
	// KillPattern matches leftover worker processes from previous runs.
	KillPattern string

	// CleanupSettle is the pause after the pre-launch pattern kill.
	CleanupSettle time.Duration

	// SpawnStagger is the pause between consecutive node spawns.
	SpawnStagger time.Duration

	// SpawnSettle is the pause after the last spawn, before address
	// resolution starts.
	SpawnSettle time.Duration

	// AddressPolicy bounds per-node address polling.
	AddressPolicy retry.Policy

	// LeaderPolicy bounds the election watch: one scan of all nodes per
	// attempt.
	LeaderPolicy retry.Policy
}

// DefaultConfig returns the standard local bootstrap pacing.
func DefaultConfig() Config {
	return Config{
		KillPattern:   "relayd",
		CleanupSettle: 1 * time.Second,
		SpawnStagger:  1 * time.Second,
		SpawnSettle:   2 * time.Second,
		AddressPolicy: retry.DefaultPolicy(),
		LeaderPolicy:  DefaultLeaderPolicy(),
	}
}

// DefaultLeaderPolicy bounds leader discovery: 30 scans, half a second
// apart, one second per probe.
func DefaultLeaderPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: 30,
		Interval:    500 * time.Millisecond,
		Timeout:     1 * time.Second,
	}
}

// Validate checks if the configuration is usable.
func (c Config) Validate() error {
	if err := validation.NewConfigValidator("BootstrapConfig").
		MinDuration("CleanupSettle", c.CleanupSettle, 0).
		MinDuration("SpawnStagger", c.SpawnStagger, 0).
		MinDuration("SpawnSettle", c.SpawnSettle, 0).
		Validate(); err != nil {
		return err
	}
	if err := c.AddressPolicy.Validate(); err != nil {
		return err
	}
	return c.LeaderPolicy.Validate()
}

// Normalize fills zero fields from the defaults.
func (c Config) Normalize() Config {
	def := DefaultConfig()
	if c.KillPattern == "" {
		c.KillPattern = def.KillPattern
	}
	c.CleanupSettle = validation.DefaultOrDuration(c.CleanupSettle, def.CleanupSettle)
	c.SpawnStagger = validation.DefaultOrDuration(c.SpawnStagger, def.SpawnStagger)
	c.SpawnSettle = validation.DefaultOrDuration(c.SpawnSettle, def.SpawnSettle)
	if c.AddressPolicy.MaxAttempts <= 0 {
		c.AddressPolicy = def.AddressPolicy
	}
	if c.LeaderPolicy.MaxAttempts <= 0 {
		c.LeaderPolicy = def.LeaderPolicy
	}
	return c
}
