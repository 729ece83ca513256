package events

import (
	"io"
	"time"
)

// Socket is a messaging socket. The interface hides the concrete transport
// so tests can substitute in-memory fakes.
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
}

// ListenSocket binds to an address and fans messages out.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// SubscribeSocket dials a publisher and filters by topic.
type SubscribeSocket interface {
	Socket
	Dial(addr string) error
	Subscribe(topic []byte) error
}

// SocketFactory creates the PUB/SUB socket pair the feed runs on.
type SocketFactory interface {
	NewPubSocket() (ListenSocket, error)
	NewSubSocket() (SubscribeSocket, error)
}

// FeedConfig configures the external event feed.
type FeedConfig struct {
	// Address the PUB socket binds, or the SUB socket dials.
	Address string

	// BufferSize bounds the publish queue; full means drop.
	BufferSize int

	// RecvTimeout is the subscriber's poll interval for stop checks.
	RecvTimeout time.Duration
}

// DefaultFeedConfig returns the standard local feed configuration.
func DefaultFeedConfig() FeedConfig {
	return FeedConfig{
		Address:     "tcp://127.0.0.1:9101",
		BufferSize:  1000,
		RecvTimeout: 1 * time.Second,
	}
}
