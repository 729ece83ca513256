package status

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewChecker(t *testing.T) {
	c := NewChecker()

	if c == nil {
		t.Fatal("NewChecker returned nil")
	}
	if c.checks == nil || c.readyChecks == nil || c.liveChecks == nil {
		t.Error("check maps not initialized")
	}
}

func TestRegisterCheck(t *testing.T) {
	c := NewChecker()

	called := false
	c.RegisterCheck("test", func() Check {
		called = true
		return Check{State: StateHealthy}
	})

	resp := c.Check()
	if !called {
		t.Error("registered check was not called")
	}
	if _, exists := resp.Checks["test"]; !exists {
		t.Error("check result not in response")
	}
}

func TestProbeKindsAreIsolated(t *testing.T) {
	c := NewChecker()

	readyCalled, liveCalled := false, false
	c.RegisterReadinessCheck("ready", func() Check {
		readyCalled = true
		return Check{State: StateHealthy}
	})
	c.RegisterLivenessCheck("live", func() Check {
		liveCalled = true
		return Check{State: StateHealthy}
	})

	c.Check()
	if readyCalled || liveCalled {
		t.Error("Check() must not run readiness or liveness checks")
	}

	c.CheckReadiness()
	if !readyCalled {
		t.Error("readiness check was not called")
	}
	if liveCalled {
		t.Error("CheckReadiness() must not run liveness checks")
	}

	c.CheckLiveness()
	if !liveCalled {
		t.Error("liveness check was not called")
	}
}

func TestStateAggregation(t *testing.T) {
	tests := []struct {
		name   string
		states []State
		want   State
	}{
		{"all healthy", []State{StateHealthy, StateHealthy, StateHealthy}, StateHealthy},
		{"one degraded", []State{StateHealthy, StateDegraded, StateHealthy}, StateDegraded},
		{"one unhealthy", []State{StateHealthy, StateUnhealthy, StateHealthy}, StateUnhealthy},
		{"degraded and unhealthy", []State{StateDegraded, StateUnhealthy, StateHealthy}, StateUnhealthy},
		{"no checks", []State{}, StateHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			for i, state := range tt.states {
				s := state
				c.RegisterCheck(string(rune('a'+i)), func() Check {
					return Check{State: s}
				})
			}

			if got := c.Check().State; got != tt.want {
				t.Errorf("aggregate = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProcessesCheck(t *testing.T) {
	tests := []struct {
		name    string
		alive   int
		want    State
		message string
	}{
		{"full cluster", 3, StateHealthy, "All node processes running"},
		{"partial cluster", 1, StateDegraded, "Some node processes down"},
		{"dead cluster", 0, StateUnhealthy, "No node processes running"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check := ProcessesCheck(3, func() int { return tt.alive })()

			if check.State != tt.want {
				t.Errorf("state = %s, want %s", check.State, tt.want)
			}
			if check.Message != tt.message {
				t.Errorf("message = %q, want %q", check.Message, tt.message)
			}
			if check.Details["alive"] != tt.alive || check.Details["expected"] != 3 {
				t.Errorf("details = %v", check.Details)
			}
		})
	}
}

func TestLeaderCheck(t *testing.T) {
	if got := LeaderCheck(func() bool { return true })(); got.State != StateHealthy {
		t.Errorf("leader present: state = %s, want healthy", got.State)
	}

	got := LeaderCheck(func() bool { return false })()
	if got.State != StateDegraded {
		t.Errorf("leader absent: state = %s, want degraded", got.State)
	}
	if got.Message != "No leader elected" {
		t.Errorf("message = %q", got.Message)
	}
}

func TestFeedCheck(t *testing.T) {
	check := FeedCheck(func() int { return 2 })()

	if check.State != StateHealthy {
		t.Errorf("state = %s, want healthy", check.State)
	}
	if check.Details["subscribers"] != 2 {
		t.Errorf("subscribers = %v, want 2", check.Details["subscribers"])
	}
}

func TestSimpleCheck(t *testing.T) {
	check := SimpleCheck("harness")()
	if check.Name != "harness" || check.State != StateHealthy {
		t.Errorf("check = %+v", check)
	}
}

func TestHTTPHandlerStates(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		wantCode int
	}{
		{"healthy", StateHealthy, http.StatusOK},
		{"degraded still serves", StateDegraded, http.StatusOK},
		{"unhealthy turned away", StateUnhealthy, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewChecker()
			s := tt.state
			c.RegisterCheck("probe", func() Check {
				return Check{State: s}
			})

			rec := httptest.NewRecorder()
			c.HTTPHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantCode)
			}

			var resp Response
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.State != tt.state {
				t.Errorf("body state = %s, want %s", resp.State, tt.state)
			}
		})
	}
}

func TestReadinessIsBinary(t *testing.T) {
	c := NewChecker()
	c.RegisterReadinessCheck("leader", LeaderCheck(func() bool { return false }))

	rec := httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	// Degraded keeps /healthz serving but fails readiness.
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestLivenessHandler(t *testing.T) {
	c := NewChecker()
	c.RegisterLivenessCheck("harness", SimpleCheck("harness"))

	rec := httptest.NewRecorder()
	c.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
