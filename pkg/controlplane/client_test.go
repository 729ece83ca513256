package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestListenAddr(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/listen_addr" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"address": "127.0.0.1:7000"})
	}))
	defer srv.Close()

	addr, err := New().ListenAddr(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("ListenAddr failed: %v", err)
	}
	if addr != "127.0.0.1:7000" {
		t.Errorf("addr = %q", addr)
	}
}

func TestConnectPeerSendsBody(t *testing.T) {
	var got connectPeerRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/connect_peer" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := New().ConnectPeer(context.Background(), srv.URL, 2, "127.0.0.1:7002")
	if err != nil {
		t.Fatalf("ConnectPeer failed: %v", err)
	}
	if got.PeerID != 2 || got.Address != "127.0.0.1:7002" {
		t.Errorf("body = %+v", got)
	}
}

func TestReady(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ready" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		called = true
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	if err := New().Ready(context.Background(), srv.URL); err != nil {
		t.Fatalf("Ready failed: %v", err)
	}
	if !called {
		t.Error("ready endpoint not hit")
	}
}

func TestIsLeader(t *testing.T) {
	leader := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"is_leader": leader})
	}))
	defer srv.Close()

	c := New()
	got, err := c.IsLeader(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("IsLeader failed: %v", err)
	}
	if got {
		t.Error("expected follower")
	}

	leader = true
	got, err = c.IsLeader(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("IsLeader failed: %v", err)
	}
	if !got {
		t.Error("expected leader")
	}
}

func TestUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := New().ListenAddr(context.Background(), srv.URL)
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("error = %v, want ErrUnexpectedStatus", err)
	}

	err = New().Ready(context.Background(), srv.URL)
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("error = %v, want ErrUnexpectedStatus", err)
	}
}

func TestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := New().IsLeader(context.Background(), srv.URL)
	if !errors.Is(err, ErrDecodeResponse) {
		t.Errorf("error = %v, want ErrDecodeResponse", err)
	}
}

func TestRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewWithTimeouts(Timeouts{Resolve: 20 * time.Millisecond})

	start := time.Now()
	_, err := c.ListenAddr(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
}

func TestConnectionRefused(t *testing.T) {
	// Nothing listens here.
	c := NewWithTimeouts(Timeouts{Probe: 100 * time.Millisecond})
	if _, err := c.IsLeader(context.Background(), "http://127.0.0.1:1"); err == nil {
		t.Error("expected connection error")
	}
}
