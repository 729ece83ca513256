package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/relaykv/harness/pkg/logging"
)

// FeedSubscriber dials a running feed and turns its frames back into
// events. Used by the watch command.
type FeedSubscriber struct {
	socket SubscribeSocket
	config FeedConfig
	out    chan Event
	log    logging.Logger

	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex
}

// NewFeedSubscriber creates a subscriber for the feed at config.Address.
func NewFeedSubscriber(factory SocketFactory, config FeedConfig, log logging.Logger) (*FeedSubscriber, error) {
	socket, err := factory.NewSubSocket()
	if err != nil {
		return nil, fmt.Errorf("create SUB socket: %w", err)
	}

	def := DefaultFeedConfig()
	if config.RecvTimeout <= 0 {
		config.RecvTimeout = def.RecvTimeout
	}
	if config.BufferSize <= 0 {
		config.BufferSize = def.BufferSize
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	return &FeedSubscriber{
		socket: socket,
		config: config,
		out:    make(chan Event, config.BufferSize),
		log:    log,
		stopCh: make(chan struct{}),
	}, nil
}

// Start dials the feed and begins delivering events on Events().
func (s *FeedSubscriber) Start() error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	if s.running {
		return nil
	}

	if err := s.socket.Dial(s.config.Address); err != nil {
		return fmt.Errorf("dial event feed %s: %w", s.config.Address, err)
	}
	if err := s.socket.Subscribe(topicPrefix); err != nil {
		s.socket.Close()
		return err
	}
	if err := s.socket.SetRecvDeadline(s.config.RecvTimeout); err != nil {
		s.socket.Close()
		return err
	}

	s.running = true
	s.wg.Add(1)
	go s.recvLoop()

	s.log.Info("subscribed to event feed", logging.Addr(s.config.Address))
	return nil
}

// Stop stops the subscriber and closes Events().
func (s *FeedSubscriber) Stop() error {
	s.runningMu.Lock()
	defer s.runningMu.Unlock()

	if !s.running {
		return nil
	}

	close(s.stopCh)
	s.running = false
	s.wg.Wait()
	s.socket.Close()
	close(s.out)
	return nil
}

// Events returns the stream of received events.
func (s *FeedSubscriber) Events() <-chan Event {
	return s.out
}

func (s *FeedSubscriber) recvLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		msg, err := s.socket.Recv()
		if err != nil {
			continue // Timeout
		}

		if !bytes.HasPrefix(msg, topicPrefix) {
			continue
		}
		data := msg[len(topicPrefix):]

		var evt Event
		if err := json.Unmarshal(data, &evt); err != nil {
			s.log.Warn("unmarshal event", logging.Error(err))
			continue
		}

		select {
		case s.out <- evt:
		case <-s.stopCh:
			return
		}
	}
}
