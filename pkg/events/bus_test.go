package events

import (
	"context"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/relaykv/harness/pkg/metrics"
)

func mustEvent(t *testing.T, evtType EventType, payload any) Event {
	t.Helper()
	evt, err := NewEvent(evtType, payload)
	if err != nil {
		t.Fatalf("NewEvent failed: %v", err)
	}
	return evt
}

// TestBusFanOut tests that every subscriber sees every event
func TestBusFanOut(t *testing.T) {
	bus := NewBus(metrics.NewRegistry())
	defer bus.Shutdown()

	ctx := context.Background()
	sub1 := bus.Subscribe(ctx)
	sub2 := bus.Subscribe(ctx)

	if got := bus.SubscriberCount(); got != 2 {
		t.Fatalf("SubscriberCount = %d", got)
	}

	const n = 10
	for i := 0; i < n; i++ {
		bus.Publish(mustEvent(t, EvtBenchmarkProgress, BenchmarkPayload{Completed: i, Total: n}))
	}

	for name, sub := range map[string]*Subscription{"sub1": sub1, "sub2": sub2} {
		for i := 0; i < n; i++ {
			select {
			case evt := <-sub.Channel():
				var p BenchmarkPayload
				if err := evt.Decode(&p); err != nil {
					t.Fatalf("%s: decode: %v", name, err)
				}
				if p.Completed != i {
					t.Errorf("%s: event %d has Completed %d", name, i, p.Completed)
				}
			case <-time.After(time.Second):
				t.Fatalf("%s: timed out waiting for event %d", name, i)
			}
		}
	}
}

// TestBusSlowSubscriberDrops tests that a full channel drops instead of blocking
func TestBusSlowSubscriberDrops(t *testing.T) {
	reg := metrics.NewRegistry()
	bus := NewBus(reg)
	defer bus.Shutdown()

	sub := bus.Subscribe(context.Background())
	_ = sub // Never drained.

	evt := mustEvent(t, EvtPhaseStarted, PhasePayload{Phase: "spawn"})
	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriptionBuffer+50; i++ {
			bus.Publish(evt)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	var m dto.Metric
	if err := reg.EventsDroppedTotal.Write(&m); err != nil {
		t.Fatal(err)
	}
	if dropped := m.GetCounter().GetValue(); dropped < 50 {
		t.Errorf("dropped = %v, want >= 50", dropped)
	}
}

// TestBusUnsubscribe tests that unsubscribed channels close and stop receiving
func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus(metrics.NewRegistry())
	defer bus.Shutdown()

	sub := bus.Subscribe(context.Background())
	sub.Unsubscribe()

	if got := bus.SubscriberCount(); got != 0 {
		t.Errorf("SubscriberCount after unsubscribe = %d", got)
	}

	select {
	case _, ok := <-sub.Channel():
		if ok {
			t.Error("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after unsubscribe")
	}
}

// TestBusContextCancelUnsubscribes tests context-driven cleanup
func TestBusContextCancelUnsubscribes(t *testing.T) {
	bus := NewBus(metrics.NewRegistry())
	defer bus.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	sub := bus.Subscribe(ctx)
	cancel()

	deadline := time.After(time.Second)
	for bus.SubscriberCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("subscriber not removed after context cancel")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if _, ok := <-sub.Channel(); ok {
		t.Error("expected closed channel")
	}
}

// TestBusShutdown tests shutdown closes subscriptions and is idempotent
func TestBusShutdown(t *testing.T) {
	bus := NewBus(metrics.NewRegistry())
	sub := bus.Subscribe(context.Background())

	bus.Shutdown()
	bus.Shutdown()

	select {
	case _, ok := <-sub.Channel():
		if ok {
			t.Error("expected closed channel after shutdown")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after shutdown")
	}

	// Publishing after shutdown is a silent no-op.
	bus.Publish(mustEvent(t, EvtPhaseStarted, PhasePayload{Phase: "spawn"}))

	// Subscribing after shutdown yields a closed subscription.
	late := bus.Subscribe(context.Background())
	if _, ok := <-late.Channel(); ok {
		t.Error("expected closed channel for late subscriber")
	}
}
