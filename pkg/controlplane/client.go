// Package controlplane talks to the administrative HTTP API every worker
// node exposes: advertised-address lookup, peer wiring, readiness, and
// leadership probes. The key-value data plane lives in pkg/kv.
package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Timeouts bounds each control-plane request. Peer connects get a longer
// budget because the node dials its peer before answering.
type Timeouts struct {
	Resolve time.Duration // GET /listen_addr
	Connect time.Duration // POST /connect_peer
	Ready   time.Duration // POST /ready
	Probe   time.Duration // GET /is_leader
}

// DefaultTimeouts returns the standard per-request budgets.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Resolve: 1 * time.Second,
		Connect: 2 * time.Second,
		Ready:   1 * time.Second,
		Probe:   1 * time.Second,
	}
}

// Client is an HTTP client for the worker control plane.
type Client struct {
	http     *http.Client
	timeouts Timeouts
}

// New creates a client with the default timeouts.
func New() *Client {
	return NewWithTimeouts(DefaultTimeouts())
}

// NewWithTimeouts creates a client with custom per-request budgets. Tests
// use this to keep failure paths fast.
func NewWithTimeouts(t Timeouts) *Client {
	def := DefaultTimeouts()
	if t.Resolve <= 0 {
		t.Resolve = def.Resolve
	}
	if t.Connect <= 0 {
		t.Connect = def.Connect
	}
	if t.Ready <= 0 {
		t.Ready = def.Ready
	}
	if t.Probe <= 0 {
		t.Probe = def.Probe
	}
	return &Client{
		http:     &http.Client{},
		timeouts: t,
	}
}

type listenAddrResponse struct {
	Address string `json:"address"`
}

type connectPeerRequest struct {
	PeerID  int    `json:"peer_id"`
	Address string `json:"address"`
}

type isLeaderResponse struct {
	IsLeader bool `json:"is_leader"`
}

// ListenAddr asks a node for the address it advertises to its peers.
func (c *Client) ListenAddr(ctx context.Context, baseURL string) (string, error) {
	var out listenAddrResponse
	if err := c.do(ctx, http.MethodGet, baseURL+"/listen_addr", nil, c.timeouts.Resolve, &out); err != nil {
		return "", err
	}
	return out.Address, nil
}

// ConnectPeer tells the node at baseURL to dial the peer with the given ID
// at the given address.
func (c *Client) ConnectPeer(ctx context.Context, baseURL string, peerID int, addr string) error {
	body := connectPeerRequest{PeerID: peerID, Address: addr}
	return c.do(ctx, http.MethodPost, baseURL+"/connect_peer", body, c.timeouts.Connect, nil)
}

// Ready signals the node that peer wiring is complete and it may start its
// consensus participation.
func (c *Client) Ready(ctx context.Context, baseURL string) error {
	return c.do(ctx, http.MethodPost, baseURL+"/ready", nil, c.timeouts.Ready, nil)
}

// IsLeader reports whether the node currently claims leadership.
func (c *Client) IsLeader(ctx context.Context, baseURL string) (bool, error) {
	var out isLeaderResponse
	if err := c.do(ctx, http.MethodGet, baseURL+"/is_leader", nil, c.timeouts.Probe, &out); err != nil {
		return false, err
	}
	return out.IsLeader, nil
}

func (c *Client) do(ctx context.Context, method, url string, body any, timeout time.Duration, out any) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: %s", ErrUnexpectedStatus, method, url, resp.Status)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: %s %s: %v", ErrDecodeResponse, method, url, err)
		}
	}
	return nil
}
