package events

import (
	"github.com/relaykv/harness/pkg/logging"
)

// Emitter is what the bootstrap and benchmark code hold: one call fans an
// event out to the in-process bus and, when configured, the external feed.
type Emitter struct {
	bus  *Bus
	feed *Feed
	log  logging.Logger
}

// NewEmitter creates an emitter. Both bus and feed may be nil; emitting
// then becomes a no-op for that side.
func NewEmitter(bus *Bus, feed *Feed, log logging.Logger) *Emitter {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Emitter{bus: bus, feed: feed, log: log}
}

// Emit builds and publishes an event. Payload marshal failures are logged
// and dropped; emitting never fails the caller.
func (e *Emitter) Emit(evtType EventType, payload any) {
	if e == nil {
		return
	}
	evt, err := NewEvent(evtType, payload)
	if err != nil {
		e.log.Warn("encode event", logging.String("event", evtType.String()), logging.Error(err))
		return
	}
	if e.bus != nil {
		e.bus.Publish(evt)
	}
	if e.feed != nil {
		e.feed.Publish(evt)
	}
}
