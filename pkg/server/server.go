package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/swarm64/fpgamon/pkg/agent"
	"github.com/swarm64/fpgamon/pkg/serializer"
)

// Config holds HTTP server settings.
type Config struct {
	Address         string
	Port            int
	RateLimit       rate.Limit
	RateLimitBurst  int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:         "",
		Port:            8399,
		RateLimit:       100, // 100 req/s
		RateLimitBurst:  200, // burst of 200
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server exposes the monitoring endpoints: health and readiness probes,
// Prometheus self-metrics, and the latest collection report.
type Server struct {
	config      *Config
	httpServer  *http.Server
	rateLimiter *rate.Limiter

	mu     sync.RWMutex
	ready  bool
	latest *agent.Report
}

// New creates a server instance.
func New(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	s := &Server{
		config:      config,
		rateLimiter: rate.NewLimiter(config.RateLimit, config.RateLimitBurst),
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Address, config.Port),
		Handler:      s.setupRoutes(),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s
}

// setupRoutes configures all HTTP routes and middleware.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	// Probes are exempt from rate limiting
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/v1/report", s.withMiddleware(s.handleReport))

	return mux
}

// SetReady marks the server as ready to serve traffic.
func (s *Server) SetReady(ready bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = ready
}

// StoreReport caches the latest completed report. Wire it to the agent via
// agent.WithReportHook.
func (s *Server) StoreReport(rep *agent.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = rep
}

// handleReport serves the latest cached report, 404 until the first cycle
// completes.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	rep := s.latest
	s.mu.RUnlock()

	if rep == nil {
		s.writeError(w, r, http.StatusNotFound, "report_not_ready",
			"no collection cycle has completed yet", true)
		return
	}

	serializer.RespondJSON(w, http.StatusOK, rep)
}

// Start starts the HTTP server and blocks until the context is canceled or
// the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.SetReady(true)

	slog.Info("starting http server", slog.String("addr", s.httpServer.Addr))

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	slog.Info("shutting down http server")
	return s.httpServer.Shutdown(shutdownCtx)
}
