package server

import (
	"net/http"

	"github.com/jrsteele09/go-okta-login/auth"
	"github.com/rs/zerolog"
)

// CallbackHandler finishes a login. Every failure gets the same generic
// redirect; the reason is only logged.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		result, err := s.auth.HandleCallback(r.Context(), auth.CallbackRequest{
			State:            q.Get("state"),
			Code:             q.Get("code"),
			Error:            q.Get("error"),
			ErrorDescription: q.Get("error_description"),
		})
		if err != nil {
			zerolog.Ctx(r.Context()).Info().Err(err).Msg("login failed")
			redirectWithError(w, r, RouteHome, errorLoginFailed)
			return
		}

		// A new login replaces whatever session the browser had.
		if oldID, _, ok := s.sessionIDFromCookie(r); ok && oldID != result.Session.ID {
			if err := s.sessions.Revoke(r.Context(), oldID); err != nil {
				zerolog.Ctx(r.Context()).Err(err).Msg("failed to revoke previous session")
			}
		}

		s.setSessionCookie(w, r, result.Session.ID, result.Session.ExpiresAt)

		dest := result.ReturnURL
		if dest == "" {
			dest = RouteProfile
		}
		redirectSuccess(w, r, dest)
	}
}
