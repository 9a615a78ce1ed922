package server

import (
	"net/http"
	"net/url"
	"time"
)

// sessionCookieName is the cookie holding the signed session id
const sessionCookieName = "okta_login_session"

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.cookies.Encode(sessionID),
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// sessionIDFromCookie returns the id carried by a correctly signed cookie.
func (s *Server) sessionIDFromCookie(r *http.Request) (id string, present bool, ok bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false, false
	}
	id, ok = s.cookies.Decode(cookie.Value)
	return id, true, ok
}

func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorCode string) {
	http.Redirect(w, r, path+"?"+paramError+"="+url.QueryEscape(errorCode), http.StatusSeeOther)
}
