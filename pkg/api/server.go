// Package api serves bow-tie diagrams over HTTP: a stateless compute
// endpoint, diagram sessions with node and edge editing, health and
// Prometheus metrics.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/timagonch/bowtie-diagram/pkg/api/middleware"
	"github.com/timagonch/bowtie-diagram/pkg/config"
	"github.com/timagonch/bowtie-diagram/pkg/health"
	"github.com/timagonch/bowtie-diagram/pkg/logging"
	"github.com/timagonch/bowtie-diagram/pkg/metrics"
	"github.com/timagonch/bowtie-diagram/pkg/risk"
	"github.com/timagonch/bowtie-diagram/pkg/workspace"
)

// Version is reported by /health.
var Version = "dev"

const (
	systemMetricsInterval = 10 * time.Second
	healthCheckTimeout    = 2 * time.Second
)

// Server represents the HTTP API server
type Server struct {
	ws        *workspace.Workspace
	engine    *risk.Engine
	cfg       config.ServerConfig
	logger    logging.Logger
	metrics   *metrics.Registry
	limiter   *middleware.RateLimiter
	health    *health.Checker
	mux       *http.ServeMux
	startTime time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics enables request metrics and the /metrics endpoint.
func WithMetrics(reg *metrics.Registry) Option {
	return func(s *Server) { s.metrics = reg }
}

// NewServer creates a new API server over ws. engine serves the stateless
// compute endpoint.
func NewServer(ws *workspace.Workspace, engine *risk.Engine, cfg config.ServerConfig, opts ...Option) *Server {
	s := &Server{
		ws:        ws,
		engine:    engine,
		cfg:       cfg,
		logger:    logging.NewNopLogger(),
		mux:       http.NewServeMux(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = risk.NewEngine()
	}
	s.logger = s.logger.With(logging.Component("api"))
	s.health = s.newHealthChecker()

	if cfg.RateLimitPerMinute > 0 {
		s.limiter = middleware.NewRateLimiter(&middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimitPerMinute,
			CleanupInterval:   5 * time.Minute,
			ClientExpiration:  10 * time.Minute,
			MaxClients:        10000,
		}, s.logger)
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /health/ready", s.health.ReadinessHandler())
	s.mux.HandleFunc("GET /health/live", s.health.LivenessHandler())
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	}

	s.mux.HandleFunc("POST /v1/compute", s.handleCompute)

	s.mux.HandleFunc("GET /v1/diagrams", s.handleListDiagrams)
	s.mux.HandleFunc("POST /v1/diagrams", s.handleCreateDiagram)
	s.mux.HandleFunc("GET /v1/diagrams/{id}", s.handleGetDiagram)
	s.mux.HandleFunc("PUT /v1/diagrams/{id}", s.handleReplaceDiagram)
	s.mux.HandleFunc("DELETE /v1/diagrams/{id}", s.handleDeleteDiagram)
	s.mux.HandleFunc("GET /v1/diagrams/{id}/report", s.handleGetReport)
	s.mux.HandleFunc("POST /v1/diagrams/{id}/layout", s.handleArrangeDiagram)
	s.mux.HandleFunc("GET /v1/diagrams/{id}/history", s.handleDiagramHistory)

	s.mux.HandleFunc("POST /v1/diagrams/{id}/nodes", s.handleAddNode)
	s.mux.HandleFunc("PUT /v1/diagrams/{id}/nodes/{nodeID}", s.handleUpdateNode)
	s.mux.HandleFunc("DELETE /v1/diagrams/{id}/nodes/{nodeID}", s.handleDeleteNode)
	s.mux.HandleFunc("POST /v1/diagrams/{id}/top-event", s.handleSetTopEvent)

	s.mux.HandleFunc("POST /v1/diagrams/{id}/edges", s.handleAddEdge)
	s.mux.HandleFunc("DELETE /v1/diagrams/{id}/edges/{edgeID}", s.handleDeleteEdge)
}

// route labels metrics with the matched pattern so ids stay out of them.
func (s *Server) route(r *http.Request) string {
	if _, pattern := s.mux.Handler(r); pattern != "" {
		return pattern
	}
	return "unmatched"
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	var recorder middleware.MetricsRecorder
	if s.metrics != nil {
		recorder = s.metrics
	}

	var h http.Handler = s.mux
	h = middleware.Metrics(recorder, s.route)(h)
	h = middleware.BodySizeLimit(int64(s.cfg.MaxBodyBytes))(h)
	h = middleware.RateLimit(s.limiter, middleware.ClientIP)(h)
	h = middleware.CORS(middleware.NewCORSConfig(s.cfg.CORSAllowedOrigins))(h)
	h = middleware.SecurityHeaders()(h)
	h = middleware.Logging(s.logger)(h)
	h = middleware.RequestID()(h)
	h = middleware.PanicRecovery(s.logger)(h)
	return h
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully
// within cfg.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.Close()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
		MaxHeaderBytes:    1 << 20,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", logging.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	if s.metrics != nil {
		go s.updateMetricsPeriodically(ctx)
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("initiating graceful shutdown", logging.Duration("timeout", s.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("shutdown error", logging.Error(err))
		return err
	}
	s.logger.Info("server shutdown complete")
	return nil
}

// Close releases background resources.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) updateMetricsPeriodically(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	s.metrics.UpdateSystemMetrics(s.startTime)
	for {
		select {
		case <-ticker.C:
			s.metrics.UpdateSystemMetrics(s.startTime)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) newHealthChecker() *health.Checker {
	hc := health.NewChecker(healthCheckTimeout)
	engineCheck := health.EngineCheck(s.engine)
	storeCheck := health.StoreCheck(s.ws.StoreBackend(), s.ws.Ping)

	hc.Register("engine", engineCheck)
	hc.Register("store", storeCheck)
	hc.Register("workspace", health.WorkspaceCheck(s.ws.Open))
	hc.Register("memory", health.MemoryCheck(health.RuntimeMemory))
	hc.RegisterReadiness("store", storeCheck)
	hc.RegisterLiveness("engine", engineCheck)
	return hc
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := s.health.Check(r.Context())
	s.respondJSON(w, health.HTTPStatus(resp.Status), HealthResponse{
		Status:    string(resp.Status),
		Timestamp: resp.Timestamp,
		Version:   Version,
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Checks:    resp.Checks,
	})
}
