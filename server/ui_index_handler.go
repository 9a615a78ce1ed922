package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/jrsteele09/go-okta-login/sessions"
)

var errorMessages = map[string]string{
	errorLoginFailed: "Login failed.",
}

type pageData struct {
	AppName string
	User    *sessions.UserProfile
	Error   string
	Claims  []claimRow
}

type claimRow struct {
	Name  string
	Value string
}

func (s *Server) newPageData(r *http.Request) pageData {
	data := pageData{AppName: s.appName}
	if session, ok := SessionFromContext(r.Context()); ok {
		data.User = &session.Profile
	}
	return data
}

// HomeHandler renders the home page
func (s *Server) HomeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData(r)
		data.Error = errorMessages[r.URL.Query().Get(paramError)]
		renderTemplate(w, r, s.homeTemplate, data)
	}
}

// ProfileHandler renders the logged in user's profile
func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := s.newPageData(r)
		if data.User == nil {
			redirectSuccess(w, r, RouteHome)
			return
		}
		data.Claims = claimRows(data.User.Claims)
		w.Header().Set("Cache-Control", "no-store")
		renderTemplate(w, r, s.profileTemplate, data)
	}
}

func claimRows(claims map[string]any) []claimRow {
	rows := make([]claimRow, 0, len(claims))
	for name, v := range claims {
		rows = append(rows, claimRow{Name: name, Value: claimValue(v)})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}

func claimValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}
