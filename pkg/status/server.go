package status

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relaykv/harness/pkg/logging"
	"github.com/relaykv/harness/pkg/metrics"
)

// Server serves the probe endpoints and the Prometheus scrape target.
type Server struct {
	server       *http.Server
	log          logging.Logger
	shutdownOnce sync.Once
}

// NewServer wires /healthz, /readyz, /livez and /metrics into a server
// listening on addr. Signal handling belongs to the caller.
func NewServer(addr string, checker *Checker, reg *metrics.Registry, log logging.Logger) *Server {
	if checker == nil {
		checker = NewChecker()
	}
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", checker.HTTPHandler())
	mux.HandleFunc("/readyz", checker.ReadinessHandler())
	mux.HandleFunc("/livez", checker.LivenessHandler())

	return &Server{
		server: &http.Server{
			Addr:           addr,
			Handler:        mux,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		log: log,
	}
}

// Handler returns the route mux. Tests drive it without a listener.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.server.Addr
}

// Start serves until Shutdown closes the listener. A closed listener is
// a normal exit, not an error.
func (s *Server) Start() error {
	s.log.Info("status server listening", logging.Addr(s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, bounded by timeout. Safe to call
// more than once.
func (s *Server) Shutdown(timeout time.Duration) error {
	var err error
	s.shutdownOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if shutdownErr := s.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			s.log.Error("status server shutdown", logging.Error(shutdownErr))
		} else {
			s.log.Info("status server stopped")
		}
	})
	return err
}
