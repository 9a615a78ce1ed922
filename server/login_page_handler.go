package server

import (
	"net/http"

	"github.com/rs/zerolog"
)

// LoginHandler starts a login and sends the browser to the provider.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authURL, _, err := s.auth.BeginLogin(r.Context(), r.URL.Query().Get(paramReturnTo))
		if err != nil {
			zerolog.Ctx(r.Context()).Err(err).Msg("failed to start login")
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// LogoutPageHandler asks for confirmation. Only the POST route revokes, so a
// cross-site link cannot end the session.
func (s *Server) LogoutPageHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData(r)
		if data.User == nil {
			redirectSuccess(w, r, RouteHome)
			return
		}
		renderTemplate(w, r, s.logoutTemplate, data)
	}
}

// LogoutHandler revokes the session, if there is one, and clears the cookie.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, _, ok := s.sessionIDFromCookie(r); ok {
			if err := s.sessions.Revoke(r.Context(), id); err != nil {
				zerolog.Ctx(r.Context()).Err(err).Msg("failed to revoke session")
			}
		}
		clearSessionCookie(w, r)
		redirectSuccess(w, r, RouteHome)
	}
}
