package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-okta-login/sessions"
	"github.com/rs/zerolog"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

// ContextKeySession stores the resolved *sessions.Session
const ContextKeySession ContextKey = "session"

// SessionFromContext returns the session loaded by LoadSession, if any.
func SessionFromContext(ctx context.Context) (*sessions.Session, bool) {
	session, ok := ctx.Value(ContextKeySession).(*sessions.Session)
	return session, ok && session != nil
}

// LoadSession resolves the session cookie. Requests without a valid session
// continue anonymously; a cookie that no longer resolves is cleared.
func (s *Server) LoadSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, present, ok := s.sessionIDFromCookie(r)
		if !present {
			next(w, r)
			return
		}
		if !ok {
			zerolog.Ctx(r.Context()).Warn().Msg("session cookie failed verification")
			clearSessionCookie(w, r)
			next(w, r)
			return
		}

		session, found := s.sessions.Resolve(r.Context(), id)
		if !found {
			clearSessionCookie(w, r)
			next(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), ContextKeySession, session)
		next(w, r.WithContext(ctx))
	}
}

// RequireSession sends anonymous visitors to the home page. It must run
// after LoadSession.
func (s *Server) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			redirectSuccess(w, r, RouteHome)
			return
		}
		next(w, r)
	}
}
