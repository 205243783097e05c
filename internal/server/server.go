// Package server is the HTTP boundary in front of the authorization
// engine. It authenticates requests, serves the access control subset of
// PROPFIND, handles the ACL method, and exposes the metrics endpoint.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perchdav/perch/internal/logger"
	"github.com/perchdav/perch/pkg/dav/acl"
	"github.com/perchdav/perch/pkg/principal"
)

func init() {
	chi.RegisterMethod("PROPFIND")
	chi.RegisterMethod("ACL")
}

// Options configures a Server.
type Options struct {
	// Engine evaluates access control decisions.
	Engine *acl.Engine

	// Resolver maps request URLs to resources.
	Resolver acl.Resolver

	// Directory authenticates basic credentials.
	Directory *principal.Directory

	// Tokens enables bearer authentication and the token endpoint when
	// non-nil.
	Tokens *principal.TokenService

	// Realm is presented in WWW-Authenticate challenges.
	Realm string

	// Addr is the listen address.
	Addr string

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration

	// Metrics, when non-nil, is served at /metrics.
	Metrics prometheus.Gatherer
}

// Server serves the DAV access control protocol.
type Server struct {
	engine    *acl.Engine
	resolver  acl.Resolver
	directory *principal.Directory
	tokens    *principal.TokenService
	realm     string
	addr      string
	timeout   time.Duration
	metrics   prometheus.Gatherer
}

// New builds a server from options.
func New(opts Options) *Server {
	if opts.Realm == "" {
		opts.Realm = "perch"
	}
	if opts.ShutdownTimeout == 0 {
		opts.ShutdownTimeout = 30 * time.Second
	}
	return &Server{
		engine:    opts.Engine,
		resolver:  opts.Resolver,
		directory: opts.Directory,
		tokens:    opts.Tokens,
		realm:     opts.Realm,
		addr:      opts.Addr,
		timeout:   opts.ShutdownTimeout,
		metrics:   opts.Metrics,
	}
}

// Handler returns the configured router.
//
// Middleware order matters: recovery wraps everything, the request logger
// binds the logging context before authentication fills in the principal.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(s.authenticate)

	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}
	if s.tokens != nil {
		r.Post("/auth/token", s.handleToken)
	}

	r.MethodFunc(http.MethodOptions, "/*", s.handleOptions)
	r.MethodFunc("PROPFIND", "/*", s.handlePropfind)
	r.MethodFunc("ACL", "/*", s.handleACL)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", s.addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		logger.Info("server shutting down", "timeout", s.timeout.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
