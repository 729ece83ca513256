package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/relaykv/harness/pkg/validation"
)

// ErrExhausted is returned when every attempt under a policy has failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy bounds a repeated operation: how many attempts, how long to wait
// between them, and how long each attempt may run.
type Policy struct {
	MaxAttempts int
	Interval    time.Duration
	Timeout     time.Duration
}

// DefaultPolicy returns the polling policy used for address resolution.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 10,
		Interval:    500 * time.Millisecond,
		Timeout:     1 * time.Second,
	}
}

// Validate checks if the policy is usable.
func (p Policy) Validate() error {
	return validation.NewConfigValidator("Policy").
		Positive("MaxAttempts", p.MaxAttempts).
		PositiveDuration("Interval", p.Interval).
		PositiveDuration("Timeout", p.Timeout).
		Validate()
}

// Normalize fills zero fields from the default policy.
func (p Policy) Normalize() Policy {
	def := DefaultPolicy()
	p.MaxAttempts = validation.DefaultOrInt(p.MaxAttempts, def.MaxAttempts)
	p.Interval = validation.DefaultOrDuration(p.Interval, def.Interval)
	p.Timeout = validation.DefaultOrDuration(p.Timeout, def.Timeout)
	return p
}

// Operation is a single attempt. The context it receives is bounded by the
// policy's per-attempt timeout.
type Operation func(ctx context.Context) error

// SleepFunc pauses between attempts. It returns early with the context's
// error if the context is cancelled.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the default SleepFunc: a plain timer wait that aborts on context
// cancellation.
func Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Runner executes operations under a policy.
type Runner struct {
	policy Policy
	sleep  SleepFunc
}

// New creates a runner for the given policy.
func New(policy Policy) *Runner {
	return NewWithSleep(policy, Sleep)
}

// NewWithSleep creates a runner with a custom sleep function. Tests use this
// to make polling deterministic.
func NewWithSleep(policy Policy, sleep SleepFunc) *Runner {
	if sleep == nil {
		sleep = Sleep
	}
	return &Runner{policy: policy.Normalize(), sleep: sleep}
}

// Policy returns the normalized policy the runner executes under.
func (r *Runner) Policy() Policy {
	return r.policy
}

// Do runs op until it succeeds or the policy is exhausted. Each attempt gets
// its own timeout-bounded context; the runner sleeps the policy interval
// between failed attempts but not after the last one. Context cancellation
// aborts immediately with the context's error.
func (r *Runner) Do(ctx context.Context, op Operation) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
		err := op(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < r.policy.MaxAttempts {
			if err := r.sleep(ctx, r.policy.Interval); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, r.policy.MaxAttempts, lastErr)
}
