// Package status serves the progress of a running search over HTTP.
//
// Endpoints:
//   - GET /api/status returns the driver snapshot as JSON
//   - GET /healthz returns 200 while the server is up
//   - GET /metrics exposes the snapshot in the Prometheus text format
package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/fortiblox/regsort/pkg/search"
)

// ErrAlreadyRunning is returned by Start on a running server.
var ErrAlreadyRunning = errors.New("status server already running")

// Config holds status server options.
type Config struct {
	// Addr is the listen address.
	// Default: "127.0.0.1:8080"
	Addr string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultConfig returns the default status server configuration.
func DefaultConfig() Config {
	return Config{
		Addr:         "127.0.0.1:8080",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// SnapshotProvider supplies the state to report. *search.Driver
// implements it.
type SnapshotProvider interface {
	Snapshot() search.Snapshot
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	search.Snapshot
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// Server is the status HTTP server.
type Server struct {
	config   Config
	provider SnapshotProvider
	registry *prometheus.Registry
	log      logrus.FieldLogger
	server   *http.Server

	mu        sync.Mutex
	running   bool
	startTime time.Time
}

// New creates a status server. Zero config fields take their defaults.
func New(config Config, provider SnapshotProvider, log logrus.FieldLogger) *Server {
	def := DefaultConfig()
	if config.Addr == "" {
		config.Addr = def.Addr
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = def.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = def.WriteTimeout
	}
	if config.IdleTimeout == 0 {
		config.IdleTimeout = def.IdleTimeout
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(newCollector(provider))

	return &Server{
		config:    config,
		provider:  provider,
		registry:  registry,
		log:       log.WithField("component", "status"),
		startTime: time.Now(),
	}
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	return mux
}

// Start serves until ctx is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.startTime = time.Now()
	s.server = &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	srv := s.server
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.log.WithField("addr", s.config.Addr).Info("status server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server: %w", err)
	}
	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	srv := s.server
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Address returns the configured listen address.
func (s *Server) Address() string { return s.config.Addr }

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.mu.Lock()
	uptime := time.Since(s.startTime)
	s.mu.Unlock()
	writeJSON(w, StatusResponse{
		Snapshot:      s.provider.Snapshot(),
		UptimeSeconds: uptime.Seconds(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
