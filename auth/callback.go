package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jrsteele09/go-okta-login/authflow"
	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"github.com/jrsteele09/go-okta-login/sessions"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// exchangeAttempts bounds token endpoint calls per callback.
const exchangeAttempts = 2

// CallbackRequest carries the query parameters of the redirect back from the
// provider.
type CallbackRequest struct {
	State            string
	Code             string
	Error            string
	ErrorDescription string
}

// TokenResponse is the part of the token endpoint reply the login flow uses.
// It is never stored.
type TokenResponse struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	IDToken      string
	Expiry       time.Time
}

// LoginResult is a completed login.
type LoginResult struct {
	Session   *sessions.Session
	ReturnURL string
}

// HandleCallback completes a login. The pending state is consumed before
// anything else, so a state can be used at most once whatever the outcome.
// Either a session is issued or an error wrapping one of ErrInvalidState,
// ErrLoginFailed, ErrTokenExchange, ErrInvalidToken or ErrUserInfo is
// returned, never both.
func (s *Service) HandleCallback(ctx context.Context, req CallbackRequest) (*LoginResult, error) {
	logger := s.logger.With().Str("state", req.State).Logger()

	if err := ValidateState(req.State); err != nil {
		return nil, s.fail(logger, "malformed_state", fmt.Errorf("%w: %w", apperrors.ErrInvalidState, err))
	}

	st, err := s.states.Consume(ctx, req.State)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrInvalidState) {
			err = fmt.Errorf("%w: %w", apperrors.ErrInvalidState, err)
		}
		return nil, s.fail(logger, "unknown_state", err)
	}

	if req.Error != "" {
		err := fmt.Errorf("%w: %s", apperrors.ErrLoginFailed, req.Error)
		logger.Warn().Str("error", req.Error).Str("error_description", req.ErrorDescription).Msg("provider returned an error")
		return nil, s.fail(logger, "provider_error", err)
	}
	if req.Code == "" {
		return nil, s.fail(logger, "missing_code", fmt.Errorf("%w: callback has no code", apperrors.ErrTokenExchange))
	}

	tok, err := s.exchange(ctx, logger, req.Code, st)
	if err != nil {
		return nil, s.fail(logger, "token_exchange", err)
	}

	claims, err := s.verifyIDToken(ctx, tok, st)
	if err != nil {
		return nil, s.fail(logger, "id_token", err)
	}

	if s.fetchUserInfo && s.provider.SupportsUserInfo() {
		if err := s.mergeUserInfo(ctx, tok, claims); err != nil {
			return nil, s.fail(logger, "userinfo", err)
		}
	}

	profile := profileFromClaims(claims)
	session, err := s.sessions.Issue(ctx, profile)
	if err != nil {
		return nil, s.fail(logger, "session", err)
	}

	logger.Info().Str("sub", profile.Subject).Msg("login succeeded")
	return &LoginResult{Session: session, ReturnURL: st.ReturnURL}, nil
}

func (s *Service) fail(logger zerolog.Logger, reason string, err error) error {
	logger.Warn().Err(err).Str("reason", reason).Msg("login callback failed")
	return err
}

// exchange redeems the code. A transport failure is retried once; an error
// response from the provider never is.
func (s *Service) exchange(ctx context.Context, logger zerolog.Logger, code string, st *authflow.State) (*TokenResponse, error) {
	var opts []oauth2.AuthCodeOption
	if st.CodeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(st.CodeVerifier))
	}

	cfg := s.provider.OAuth2Config()
	clientCtx := s.provider.ClientContext(ctx)

	var (
		tok *oauth2.Token
		err error
	)
	for attempt := 1; attempt <= exchangeAttempts; attempt++ {
		tok, err = cfg.Exchange(clientCtx, code, opts...)
		if err == nil || !isTransient(ctx, err) {
			break
		}
		logger.Debug().Err(err).Int("attempt", attempt).Msg("token exchange transport failure")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrTokenExchange, err)
	}

	resp := &TokenResponse{
		AccessToken:  tok.AccessToken,
		TokenType:    tok.Type(),
		RefreshToken: tok.RefreshToken,
		Expiry:       tok.Expiry,
	}
	if raw, ok := tok.Extra("id_token").(string); ok {
		resp.IDToken = raw
	}
	return resp, nil
}

// isTransient reports whether err is a transport failure worth one more try.
// Timeouts are not retried; the client timeout already bounds the wait.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var re *oauth2.RetrieveError
	if apperrors.As(err, &re) {
		return false
	}
	var ue *url.Error
	if apperrors.As(err, &ue) {
		return !ue.Timeout()
	}
	return false
}

// verifyIDToken checks signature, issuer, audience, expiry, nonce and, when
// present, at_hash. It returns the token's claims.
func (s *Service) verifyIDToken(ctx context.Context, tok *TokenResponse, st *authflow.State) (map[string]any, error) {
	if tok.IDToken == "" {
		return nil, fmt.Errorf("%w: token response has no id_token", apperrors.ErrInvalidToken)
	}

	idToken, err := s.provider.Verifier().Verify(s.provider.ClientContext(ctx), tok.IDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
	}
	if idToken.Nonce != st.Nonce {
		return nil, fmt.Errorf("%w: nonce mismatch", apperrors.ErrInvalidToken)
	}
	if idToken.AccessTokenHash != "" {
		if err := idToken.VerifyAccessToken(tok.AccessToken); err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidToken, err)
		}
	}

	var claims map[string]any
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %w", apperrors.ErrInvalidToken, err)
	}
	if sub, _ := claims["sub"].(string); sub == "" {
		return nil, fmt.Errorf("%w: no subject", apperrors.ErrInvalidToken)
	}
	return claims, nil
}

// protectedClaims come from the ID token only.
var protectedClaims = map[string]bool{
	"iss": true, "sub": true, "aud": true, "exp": true, "iat": true,
	"nonce": true, "at_hash": true, "c_hash": true, "auth_time": true,
}

// mergeUserInfo adds userinfo claims to claims. The userinfo subject must be
// the ID token's subject.
func (s *Service) mergeUserInfo(ctx context.Context, tok *TokenResponse, claims map[string]any) error {
	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
	})
	info, err := s.provider.Provider().UserInfo(s.provider.ClientContext(ctx), src)
	if err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrUserInfo, err)
	}
	if info.Subject != claims["sub"] {
		return fmt.Errorf("%w: userinfo subject %q does not match id token", apperrors.ErrInvalidToken, info.Subject)
	}

	var extra map[string]any
	if err := info.Claims(&extra); err != nil {
		return fmt.Errorf("%w: decode claims: %w", apperrors.ErrUserInfo, err)
	}
	for k, v := range extra {
		if !protectedClaims[k] {
			claims[k] = v
		}
	}
	return nil
}
