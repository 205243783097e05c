package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/perchdav/perch/internal/logger"
	"github.com/perchdav/perch/pkg/dav/acl"
)

type actorContextKey struct{}

// actorFrom returns the actor established for the request, or the
// anonymous actor when authentication never ran.
func actorFrom(ctx context.Context) acl.Actor {
	if actor, ok := ctx.Value(actorContextKey{}).(acl.Actor); ok {
		return actor
	}
	return acl.AnonymousActor
}

// authenticate resolves the Authorization header to an actor and stores
// it in the request context. A missing header yields the anonymous actor;
// a present but invalid one is rejected with a challenge, so a client
// that tried to authenticate never silently downgrades to anonymous.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := acl.AnonymousActor

		header := r.Header.Get("Authorization")
		switch {
		case header == "":

		case strings.HasPrefix(header, "Basic "):
			username, password, ok := r.BasicAuth()
			if !ok {
				s.challenge(w, r)
				return
			}
			principalURL, ok := s.directory.Authenticate(username, password)
			if !ok {
				logger.WarnCtx(r.Context(), "basic authentication failed", "username", username)
				s.challenge(w, r)
				return
			}
			actor = acl.Actor{Href: principalURL}

		case strings.HasPrefix(header, "Bearer "):
			if s.tokens == nil {
				s.challenge(w, r)
				return
			}
			principalURL, err := s.tokens.Verify(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				logger.WarnCtx(r.Context(), "bearer authentication failed", "error", err)
				s.challenge(w, r)
				return
			}
			actor = acl.Actor{Href: principalURL}

		default:
			s.challenge(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), actorContextKey{}, actor)
		if lc := logger.FromContext(ctx); lc != nil {
			lc.Principal = actor.Key()
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// challenge rejects the request with a 401 and the server's realm.
func (s *Server) challenge(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+s.realm+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}

// requestLogger tags the request with an ID, binds the logging context,
// and logs start and completion.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lc := &logger.LogContext{
			RequestID: uuid.NewString(),
			Method:    r.Method,
			Resource:  r.URL.Path,
		}
		ctx := logger.WithContext(r.Context(), lc)
		r = r.WithContext(ctx)

		logger.DebugCtx(ctx, "request started", "remote_addr", r.RemoteAddr)

		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		logger.InfoCtx(ctx, "request completed", "status", ww.status)
	})
}

// statusWriter captures the response status for the completion log line.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
