// Package http exposes the reconciliation engine as a JSON API.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	applog "esgrec/internal/log"
	"esgrec/internal/middleware/ratelimit"
	"esgrec/internal/middleware/security"
	"esgrec/internal/middleware/trace"
	"esgrec/internal/services"
)

// Config holds the server settings.
type Config struct {
	Port              string
	RequestsPerMinute int
}

// Server wires the HTTP surface: routing, middleware and graceful shutdown.
type Server struct {
	http.Server

	matrixSvc  *services.MatrixService
	accountSvc *services.AccountService

	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	ready   func(context.Context) error
}

// NewServer builds the server. ready is consulted by /readyz; nil means
// always ready.
func NewServer(cfg Config, matrixSvc *services.MatrixService, accountSvc *services.AccountService, ready func(context.Context) error) *Server {
	s := &Server{
		matrixSvc:  matrixSvc,
		accountSvc: accountSvc,
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
		}),
		tracer: trace.NewMiddleware(nil),
		ready:  ready,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metricz", s.handleMetrics)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	mux.HandleFunc("PUT /api/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeactivateAccount)
	mux.HandleFunc("GET /api/accounts/{id}/history", s.handleRecordHistory)

	mux.HandleFunc("GET /api/matrix", s.handleGetMatrix)
	mux.HandleFunc("POST /api/matrix", s.handleSaveMatrix)
	mux.HandleFunc("POST /api/matrix/cells", s.handleSaveCells)
	mux.HandleFunc("GET /api/matrix/export", s.handleExportMatrix)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	rateLimited := s.limiter.Middleware(trace.ClientIP, nil)
	ctxLogger := applog.New(applog.Config{Component: applog.ComponentHTTP})

	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = rateLimited(handler)
	handler = applog.Middleware(ctxLogger)(handler)
	handler = s.tracer.Handler(handler)

	s.Addr = ":" + cfg.Port
	s.Handler = handler
	s.ReadHeaderTimeout = 5 * time.Second
	s.ReadTimeout = 15 * time.Second
	s.WriteTimeout = 30 * time.Second
	s.IdleTimeout = 60 * time.Second
	return s
}

// Start runs the server until it is shut down.
func (s *Server) Start() error {
	slog.Info("HTTP server listening", "addr", s.Addr)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			slog.WarnContext(r.Context(), "Readiness check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// metricsSnapshot is the /metricz payload.
type metricsSnapshot struct {
	TotalRequests       int64 `json:"totalRequests"`
	AverageResponseTime int64 `json:"averageResponseTimeUs"`
	RateLimitedHits     int64 `json:"rateLimitedHits"`
	RateLimitedClients  int64 `json:"rateLimitedClients"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	tm := s.tracer.GetMetrics()
	rm := s.limiter.GetMetrics()
	writeJSON(w, http.StatusOK, metricsSnapshot{
		TotalRequests:       tm.TotalRequests,
		AverageResponseTime: tm.AverageResponseTime,
		RateLimitedHits:     rm.TotalHits,
		RateLimitedClients:  rm.ClientCount,
	})
}
