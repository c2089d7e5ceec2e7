// Package web provides the HTTP server and handlers for the custom field upload UI.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/fieldsync/internal/config"
	"github.com/JonMunkholm/fieldsync/internal/core"
	mw "github.com/JonMunkholm/fieldsync/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// sweepInterval is how often idle rate limiter entries are dropped.
const sweepInterval = time.Minute

// Server is the HTTP server for the upload application.
type Server struct {
	cfg     *config.Config
	service *core.Service
	router  *chi.Mux
	server  *http.Server

	limiters []*mw.RateLimiter
	stop     context.CancelFunc
	bg       context.Context
}

// NewServer creates a Server with middleware and routes configured.
func NewServer(cfg *config.Config, service *core.Service) *Server {
	bg, stop := context.WithCancel(context.Background())
	s := &Server{
		cfg:     cfg,
		service: service,
		router:  chi.NewRouter(),
		bg:      bg,
		stop:    stop,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute).Handler)
	}

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, errNotFound, http.StatusNotFound)
	})
	s.router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, errMethodNotAllowed, http.StatusMethodNotAllowed)
	})
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Group(func(r chi.Router) {
		r.Use(mw.APIKeyAuth(s.cfg.Security))

		// Upload batches block on the CRM for as long as they need, so the
		// request timeout only applies to the cheap routes.
		quick := r
		if t := s.cfg.Server.RequestTimeout; t > 0 {
			quick = r.With(middleware.Timeout(t))
		}
		quick.Get("/", s.handleForm)
		quick.Get("/status", s.handleStatus)

		upload := r
		if s.cfg.Rate.Enabled {
			upload = r.With(s.newRateLimiter(s.cfg.Rate.UploadLimit).Handler)
		}
		upload.Post("/", s.handleUpload)
	})
}

func (s *Server) newRateLimiter(perMinute int) *mw.RateLimiter {
	rl := mw.NewRateLimiter(perMinute)
	s.limiters = append(s.limiters, rl)
	return rl
}

// Start begins listening for HTTP requests. It blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	for _, rl := range s.limiters {
		go rl.Run(s.bg, sweepInterval)
	}

	slog.Info("starting server", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				// The page has one inline <style> block and no scripts.
				h.Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}
