package status

// Harness check functions

// SimpleCheck always reports healthy. Registered as the liveness probe:
// if the handler answers at all, the harness process is alive.
func SimpleCheck(name string) CheckFunc {
	return func() Check {
		return Check{
			Name:  name,
			State: StateHealthy,
		}
	}
}

// ProcessesCheck probes the spawned node processes. A full cluster is
// healthy, a partial one is degraded, zero live processes is unhealthy.
func ProcessesCheck(expected int, alive func() int) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "processes",
			Details: make(map[string]any),
		}

		n := alive()
		check.Details["alive"] = n
		check.Details["expected"] = expected

		if n == 0 {
			check.State = StateUnhealthy
			check.Message = "No node processes running"
		} else if n < expected {
			check.State = StateDegraded
			check.Message = "Some node processes down"
		} else {
			check.State = StateHealthy
			check.Message = "All node processes running"
		}

		return check
	}
}

// LeaderCheck probes cluster leadership. An un-elected cluster is
// degraded rather than unhealthy; the processes check covers outages.
func LeaderCheck(present func() bool) CheckFunc {
	return func() Check {
		check := Check{Name: "leader"}

		if present() {
			check.State = StateHealthy
			check.Message = "Leader elected"
		} else {
			check.State = StateDegraded
			check.Message = "No leader elected"
		}

		return check
	}
}

// FeedCheck reports on the event feed's subscriber population. The feed
// is observability, so it never degrades the aggregate.
func FeedCheck(subscribers func() int) CheckFunc {
	return func() Check {
		check := Check{
			Name:    "events",
			State:   StateHealthy,
			Details: make(map[string]any),
		}
		check.Details["subscribers"] = subscribers()
		return check
	}
}
