package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-okta-login/auth"
	"github.com/jrsteele09/go-okta-login/authflow"
	"github.com/jrsteele09/go-okta-login/internal/config"
	"github.com/jrsteele09/go-okta-login/sessions"
	"github.com/rs/zerolog"
)

// Authenticator is the login flow the server drives.
type Authenticator interface {
	BeginLogin(ctx context.Context, returnURL string) (string, *authflow.State, error)
	HandleCallback(ctx context.Context, req auth.CallbackRequest) (*auth.LoginResult, error)
}

var _ Authenticator = (*auth.Service)(nil)

type Server struct {
	env          string // Environment (e.g., "DEV", "PROD")
	appName      string
	mux          *http.ServeMux
	routes       []string
	callbackPath string
	auth         Authenticator
	sessions     *sessions.Manager
	cookies      *sessions.CookieCodec
	logger       zerolog.Logger

	homeTemplate    *template.Template
	profileTemplate *template.Template
	logoutTemplate  *template.Template
}

// New builds the HTTP surface. The callback route is served on the path of
// the configured callback URL.
func New(cfg config.Config, authenticator Authenticator, mgr *sessions.Manager, cookies *sessions.CookieCodec, logger zerolog.Logger) (*Server, error) {
	callbackPath, err := pathOf(cfg.GetCallbackURL())
	if err != nil {
		return nil, fmt.Errorf("[Server New] callback url: %w", err)
	}

	s := &Server{
		env:          cfg.GetEnv(),
		appName:      cfg.GetAppName(),
		mux:          http.NewServeMux(),
		callbackPath: callbackPath,
		auth:         authenticator,
		sessions:     mgr,
		cookies:      cookies,
		logger:       logger,
	}

	if s.homeTemplate, err = ParseTemplate("home.html"); err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse home template: %w", err)
	}
	if s.profileTemplate, err = ParseTemplate("profile.html"); err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse profile template: %w", err)
	}
	if s.logoutTemplate, err = ParseTemplate("logout.html"); err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse logout template: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		s.logger.Debug().Str("method", method).Str("path", path).Msg("route")
	}
}

func pathOf(raw string) (string, error) {
	if raw == "" {
		return RouteCallback, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Path == "" || u.Path == "/" {
		return "", fmt.Errorf("%q has no path", raw)
	}
	return u.Path, nil
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return strings.ToLower(scheme)
	}
	return "http"
}
