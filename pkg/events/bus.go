package events

import (
	"context"
	"sync"

	"github.com/relaykv/harness/pkg/metrics"
)

const subscriptionBuffer = 100

// Bus fans events out to in-process subscribers. Sends never block: a
// subscriber that stops draining its channel loses events, and the loss is
// counted.
type Bus struct {
	reg *metrics.Registry

	subscribers map[*Subscription]bool
	mu          sync.RWMutex
	shutdown    chan struct{}
	shutdownMu  sync.Mutex
	isShutdown  bool
}

// Subscription is one subscriber's view of the bus.
type Subscription struct {
	channel   chan Event
	bus       *Bus
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewBus creates an event bus.
func NewBus(reg *metrics.Registry) *Bus {
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	return &Bus{
		reg:         reg,
		subscribers: make(map[*Subscription]bool),
		shutdown:    make(chan struct{}),
	}
}

// Subscribe registers a new subscriber. The subscription ends when the
// context is cancelled, Unsubscribe is called, or the bus shuts down.
func (b *Bus) Subscribe(ctx context.Context) *Subscription {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		sub := &Subscription{channel: make(chan Event)}
		sub.close()
		return sub
	}
	b.shutdownMu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	sub := &Subscription{
		channel: make(chan Event, subscriptionBuffer),
		bus:     b,
		cancel:  cancel,
	}

	b.mu.Lock()
	b.subscribers[sub] = true
	b.mu.Unlock()

	go func() {
		select {
		case <-subCtx.Done():
			sub.Unsubscribe()
		case <-b.shutdown:
			sub.close()
		}
	}()

	return sub
}

// Publish delivers an event to every current subscriber. Subscribers are
// snapshotted under the read lock; the sends happen outside it so a slow
// consumer cannot stall the bus.
func (b *Bus) Publish(evt Event) {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.shutdownMu.Unlock()

	b.reg.EventsPublishedTotal.WithLabelValues(evt.Type.String()).Inc()

	b.mu.RLock()
	if len(b.subscribers) == 0 {
		b.mu.RUnlock()
		return
	}
	subs := make([]*Subscription, 0, len(b.subscribers))
	for sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.channel <- evt:
		default:
			b.reg.EventsDroppedTotal.Inc()
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}

// Shutdown closes every subscription. Further publishes are dropped.
func (b *Bus) Shutdown() {
	b.shutdownMu.Lock()
	if b.isShutdown {
		b.shutdownMu.Unlock()
		return
	}
	b.isShutdown = true
	b.shutdownMu.Unlock()

	close(b.shutdown)

	b.mu.Lock()
	for sub := range b.subscribers {
		sub.close()
		delete(b.subscribers, sub)
	}
	b.mu.Unlock()
}

// Channel returns the subscription's event channel. It is closed when the
// subscription ends.
func (s *Subscription) Channel() <-chan Event {
	return s.channel
}

// Unsubscribe removes the subscription from the bus.
func (s *Subscription) Unsubscribe() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.bus != nil {
		s.bus.mu.Lock()
		delete(s.bus.subscribers, s)
		s.bus.mu.Unlock()
	}
	s.close()
}

func (s *Subscription) close() {
	s.closeOnce.Do(func() {
		close(s.channel)
	})
}
