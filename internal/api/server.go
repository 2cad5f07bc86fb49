// Package api serves the content-count endpoint and the admin routes around it.
package api

import (
	"context"
	"net/http"

	"github.com/contentmetrics/contentmetrics/internal/auth"
	"github.com/contentmetrics/contentmetrics/internal/counts"
	"github.com/contentmetrics/contentmetrics/internal/metrics"
	"github.com/contentmetrics/contentmetrics/internal/schema"
	"github.com/contentmetrics/contentmetrics/internal/widget"
)

// Pinger reports record-store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options holds HTTP-level settings.
type Options struct {
	PluginID  string
	RateLimit float64 // requests per second per client IP; 0 disables limiting
	RateBurst int
}

// Server holds all dependencies for the HTTP API.
type Server struct {
	aggregator *counts.Aggregator
	schemas    schema.Provider
	widgets    *widget.Registry
	auth       *auth.Auth
	store      Pinger
	prom       *metrics.Prom
	opts       Options
	limiter    *rateLimiter
	mux        *http.ServeMux
}

// NewServer creates a new API server with all routes configured.
func NewServer(aggregator *counts.Aggregator, schemas schema.Provider, widgets *widget.Registry,
	authSvc *auth.Auth, store Pinger, prom *metrics.Prom, opts Options) *Server {
	s := &Server{
		aggregator: aggregator,
		schemas:    schemas,
		widgets:    widgets,
		auth:       authSvc,
		store:      store,
		prom:       prom,
		opts:       opts,
		mux:        http.NewServeMux(),
	}
	if opts.RateLimit > 0 {
		s.limiter = newRateLimiter(opts.RateLimit, opts.RateBurst)
	}

	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	if s.limiter != nil {
		h = rateLimitMiddleware(s.limiter)(h)
	}
	h = s.loggingMiddleware(h)
	h = securityHeadersMiddleware(h)
	return requestIDMiddleware(h)
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", s.prom.Handler())

	s.mux.HandleFunc("POST /admin/login", s.handleLogin)
	s.mux.Handle("GET /admin/widgets", s.authMiddleware(http.HandlerFunc(s.handleListWidgets)))
	s.mux.Handle("GET /admin/content-types", s.authMiddleware(http.HandlerFunc(s.handleListContentTypes)))
	s.mux.Handle("GET /admin/content-types/{uid}", s.authMiddleware(http.HandlerFunc(s.handleGetContentType)))

	s.mux.Handle("GET /"+s.opts.PluginID+"/count", s.authMiddleware(http.HandlerFunc(s.handleCount)))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
