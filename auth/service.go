package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-okta-login/authflow"
	"github.com/jrsteele09/go-okta-login/provider"
	"github.com/jrsteele09/go-okta-login/sessions"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Service runs the relying-party side of the authorization code flow: it
// sends users to the provider and turns the provider's callback into a
// session.
type Service struct {
	provider      *provider.Cache
	states        authflow.Repo
	sessions      *sessions.Manager
	stateTTL      time.Duration
	usePKCE       bool
	fetchUserInfo bool
	logger        zerolog.Logger
	nowTime       func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithStateTTL sets how long a login attempt stays pending.
func WithStateTTL(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.stateTTL = d
		}
	}
}

// WithPKCE turns the S256 code challenge on or off. It is on by default.
func WithPKCE(enabled bool) ServiceOption {
	return func(s *Service) { s.usePKCE = enabled }
}

// WithUserInfo controls whether the userinfo endpoint is called after the
// ID token is verified. It is on by default.
func WithUserInfo(enabled bool) ServiceOption {
	return func(s *Service) { s.fetchUserInfo = enabled }
}

func WithLogger(l zerolog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) { s.nowTime = nowFunc }
}

// NewService wires the login flow to its provider and stores.
func NewService(p *provider.Cache, states authflow.Repo, mgr *sessions.Manager, opts ...ServiceOption) (*Service, error) {
	if p == nil {
		return nil, errors.New("provider cache is required")
	}
	if states == nil {
		return nil, errors.New("pending state repo is required")
	}
	if mgr == nil {
		return nil, errors.New("session manager is required")
	}

	s := &Service{
		provider:      p,
		states:        states,
		sessions:      mgr,
		stateTTL:      authflow.DefaultTTL,
		usePKCE:       true,
		fetchUserInfo: true,
		logger:        log.Logger,
		nowTime:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// BeginLogin records a new pending login and returns the provider URL the
// browser should be sent to. returnURL is kept only if it is a local path.
// No network call is made.
func (s *Service) BeginLogin(ctx context.Context, returnURL string) (string, *authflow.State, error) {
	st, err := authflow.NewState(s.nowTime(), s.stateTTL, s.usePKCE)
	if err != nil {
		return "", nil, fmt.Errorf("[auth BeginLogin] %w", err)
	}
	st.ReturnURL = SanitizeReturnURL(returnURL)

	if err := s.states.Save(ctx, st); err != nil {
		return "", nil, fmt.Errorf("[auth BeginLogin] save state: %w", err)
	}

	opts := []oauth2.AuthCodeOption{oidc.Nonce(st.Nonce)}
	if st.CodeVerifier != "" {
		opts = append(opts, oauth2.S256ChallengeOption(st.CodeVerifier))
	}
	return s.provider.OAuth2Config().AuthCodeURL(st.ID, opts...), st, nil
}
