// Package kv is the client for the worker nodes' key-value data plane.
// Writes must go to the leader; the caller decides which node that is.
package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// DefaultTimeout bounds a single data-plane request. Writes wait on a
// consensus commit, so this is looser than the control-plane budgets.
const DefaultTimeout = 5 * time.Second

// Store is the operation surface load generators run against.
type Store interface {
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (value string, found bool, err error)
}

// Client talks to one node's key-value HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

var _ Store = (*Client)(nil)

// New creates a client for the node at baseURL.
func New(baseURL string) *Client {
	return NewWithTimeout(baseURL, DefaultTimeout)
}

// NewWithTimeout creates a client with a custom per-request timeout.
func NewWithTimeout(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: timeout,
	}
}

// BaseURL returns the node URL this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type putRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type putResponse struct {
	Success bool `json:"success"`
}

type getResponse struct {
	Value string `json:"value"`
	Found bool   `json:"found"`
}

// Put stores a key-value pair.
func (c *Client) Put(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	data, err := json.Marshal(putRequest{Key: key, Value: value})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/kv", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: put %q: %s", ErrUnexpectedStatus, key, resp.Status)
	}

	var out putResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("%w: put %q: %v", ErrDecodeResponse, key, err)
	}
	if !out.Success {
		return fmt.Errorf("%w: %q", ErrPutRejected, key)
	}
	return nil
}

// Get fetches the value for a key. A missing key is not an error; it comes
// back as found == false.
func (c *Client) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqURL := c.baseURL + "/kv/" + url.PathEscape(key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", false, fmt.Errorf("%w: get %q: %s", ErrUnexpectedStatus, key, resp.Status)
	}

	var out getResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, fmt.Errorf("%w: get %q: %v", ErrDecodeResponse, key, err)
	}
	return out.Value, out.Found, nil
}
