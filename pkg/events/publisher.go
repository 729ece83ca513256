package events

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/relaykv/harness/pkg/logging"
	"github.com/relaykv/harness/pkg/metrics"
)

// topicPrefix lets SUB sockets filter harness events from anything else on
// the wire.
var topicPrefix = []byte("EVT:")

// Feed publishes events on a PUB socket for external watchers.
type Feed struct {
	socket ListenSocket
	addr   string
	stream chan Event
	log    logging.Logger
	reg    *metrics.Registry

	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex
}

// NewFeed creates a feed bound to the configured address once started.
func NewFeed(factory SocketFactory, config FeedConfig, log logging.Logger, reg *metrics.Registry) (*Feed, error) {
	socket, err := factory.NewPubSocket()
	if err != nil {
		return nil, fmt.Errorf("create PUB socket: %w", err)
	}

	bufSize := config.BufferSize
	if bufSize <= 0 {
		bufSize = DefaultFeedConfig().BufferSize
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}

	return &Feed{
		socket: socket,
		addr:   config.Address,
		stream: make(chan Event, bufSize),
		log:    log,
		reg:    reg,
		stopCh: make(chan struct{}),
	}, nil
}

// Start binds the socket and begins publishing queued events.
func (f *Feed) Start() error {
	f.runningMu.Lock()
	defer f.runningMu.Unlock()

	if f.running {
		return fmt.Errorf("event feed already running")
	}

	if err := f.socket.Listen(f.addr); err != nil {
		return fmt.Errorf("bind PUB socket to %s: %w", f.addr, err)
	}

	f.running = true
	f.wg.Add(1)
	go f.publishLoop()

	f.log.Info("event feed started", logging.Addr(f.addr))
	return nil
}

// Stop stops the feed and closes the socket.
func (f *Feed) Stop() error {
	f.runningMu.Lock()
	defer f.runningMu.Unlock()

	if !f.running {
		return nil
	}

	close(f.stopCh)
	f.running = false
	f.wg.Wait()

	if err := f.socket.Close(); err != nil {
		f.log.Warn("closing event feed socket", logging.Error(err))
	}

	f.log.Info("event feed stopped")
	return nil
}

// Publish queues an event. A full queue drops the event; the feed is
// observability, not control flow.
func (f *Feed) Publish(evt Event) {
	select {
	case f.stream <- evt:
	default:
		f.reg.EventsDroppedTotal.Inc()
	}
}

func (f *Feed) publishLoop() {
	defer f.wg.Done()

	for {
		select {
		case <-f.stopCh:
			return
		case evt := <-f.stream:
			data, err := json.Marshal(evt)
			if err != nil {
				f.log.Warn("marshal event", logging.Error(err))
				continue
			}

			msg := append(append([]byte{}, topicPrefix...), data...)
			if err := f.socket.Send(msg); err != nil {
				f.log.Warn("publish event", logging.Error(err))
			}
		}
	}
}
