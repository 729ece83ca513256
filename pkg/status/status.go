// Package status exposes the harness's observability surface: health,
// readiness and liveness probes aggregated from registered checks, plus
// the Prometheus metrics endpoint. The probes describe the harness and
// the cluster it supervises, never the KV payload.
package status

import (
	"sync"
	"time"
)

// State represents the health state of a component.
type State string

const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

// Check is the result of probing one component.
type Check struct {
	Name        string         `json:"name"`
	State       State          `json:"state"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"duration_ns"`
}

// CheckFunc performs a health check.
type CheckFunc func() Check

// Response is the aggregate of one probe pass.
type Response struct {
	State     State            `json:"state"`
	Timestamp time.Time        `json:"timestamp"`
	Checks    map[string]Check `json:"checks"`
	Uptime    float64          `json:"uptime_seconds"`
}

// Checker aggregates health, readiness and liveness checks. The worst
// individual state wins the aggregate.
type Checker struct {
	checks      map[string]CheckFunc
	readyChecks map[string]CheckFunc
	liveChecks  map[string]CheckFunc
	started     time.Time
	mu          sync.RWMutex
}

// NewChecker creates an empty checker. With no checks registered every
// probe reports healthy.
func NewChecker() *Checker {
	return &Checker{
		checks:      make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
		liveChecks:  make(map[string]CheckFunc),
		started:     time.Now(),
	}
}

// RegisterCheck registers a health check.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// RegisterReadinessCheck registers a readiness check.
func (c *Checker) RegisterReadinessCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readyChecks[name] = check
}

// RegisterLivenessCheck registers a liveness check.
func (c *Checker) RegisterLivenessCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liveChecks[name] = check
}

// Check performs all health checks.
func (c *Checker) Check() Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.performChecks(c.checks)
}

// CheckReadiness performs readiness checks.
func (c *Checker) CheckReadiness() Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.performChecks(c.readyChecks)
}

// CheckLiveness performs liveness checks.
func (c *Checker) CheckLiveness() Response {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.performChecks(c.liveChecks)
}

func (c *Checker) performChecks(checksMap map[string]CheckFunc) Response {
	response := Response{
		State:     StateHealthy,
		Timestamp: time.Now(),
		Checks:    make(map[string]Check),
		Uptime:    time.Since(c.started).Seconds(),
	}

	for name, checkFunc := range checksMap {
		start := time.Now()
		check := checkFunc()
		check.Duration = time.Since(start)
		check.LastChecked = start

		response.Checks[name] = check

		// Worst state wins
		if check.State == StateUnhealthy {
			response.State = StateUnhealthy
		} else if check.State == StateDegraded && response.State != StateUnhealthy {
			response.State = StateDegraded
		}
	}

	return response
}
