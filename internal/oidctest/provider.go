// Package oidctest runs a disposable OpenID Connect provider for tests. It
// lays out its endpoints the way an Okta authorization server does, so the
// issuer URL alone is enough to configure a relying party in static mode.
package oidctest

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-okta-login/internal/utils"
	"github.com/stretchr/testify/require"
)

const (
	DefaultClientID     = "test-client"
	DefaultClientSecret = "test-secret"
	DefaultSubject      = "00u-test-subject"

	AuthorizePath = "/v1/authorize"
	TokenPath     = "/v1/token"
	UserInfoPath  = "/v1/userinfo"
	KeysPath      = "/v1/keys"
	DiscoveryPath = "/.well-known/openid-configuration"
)

// authRequest is what the authorization endpoint remembers about a code.
type authRequest struct {
	nonce         string
	challenge     string
	challengeMeth string
	redirectURI   string
}

// Provider is a local OIDC provider. All setters are safe to call while the
// server is running.
type Provider struct {
	httpServer *httptest.Server
	key        *signingKey

	tokenCalls atomic.Int32

	mu              sync.Mutex
	clientID        string
	clientSecret    string
	subject         string
	customClaims    map[string]any
	audience        string
	issuerClaim     string
	nonceClaim      string
	atHash          string
	idTokenTTL      time.Duration
	omitIDToken     bool
	tokenStatus     int
	tokenDelay      time.Duration
	redirectURIs    []string
	userInfo        map[string]any
	userInfoStatus  int
	disableUserInfo bool
	codes           map[string]authRequest
	accessTokens    map[string]struct{}
}

// Start creates a Provider and stops it when the test finishes.
func Start(t testing.TB) *Provider {
	t.Helper()

	key, err := newSigningKey("test-key-1")
	require.NoError(t, err)

	p := &Provider{
		key:          key,
		clientID:     DefaultClientID,
		clientSecret: DefaultClientSecret,
		subject:      DefaultSubject,
		idTokenTTL:   5 * time.Minute,
		codes:        make(map[string]authRequest),
		accessTokens: make(map[string]struct{}),
	}
	p.httpServer = httptest.NewServer(p)
	t.Cleanup(p.httpServer.Close)
	return p
}

// Issuer is the provider's issuer URL.
func (p *Provider) Issuer() string { return p.httpServer.URL }

func (p *Provider) Client() *http.Client { return p.httpServer.Client() }

// TokenCalls reports how many requests reached the token endpoint.
func (p *Provider) TokenCalls() int { return int(p.tokenCalls.Load()) }

func (p *Provider) SetClientCreds(clientID, clientSecret string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
	p.clientSecret = clientSecret
}

func (p *Provider) SetSubject(sub string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subject = sub
}

// SetCustomClaims adds claims to every ID token issued.
func (p *Provider) SetCustomClaims(claims map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = claims
}

// SetAudience overrides the aud claim, which is the client id by default.
func (p *Provider) SetAudience(aud string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.audience = aud
}

// SetIssuerClaim overrides the iss claim.
func (p *Provider) SetIssuerClaim(iss string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issuerClaim = iss
}

// SetNonceClaim overrides the nonce echoed from the authorization request.
func (p *Provider) SetNonceClaim(nonce string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nonceClaim = nonce
}

// SetAccessTokenHash overrides the computed at_hash claim.
func (p *Provider) SetAccessTokenHash(h string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.atHash = h
}

// SetIDTokenTTL sets the ID token lifetime; a negative value issues tokens
// that are already expired.
func (p *Provider) SetIDTokenTTL(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idTokenTTL = d
}

func (p *Provider) OmitIDToken() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// SetTokenStatus makes the token endpoint fail with the given status.
func (p *Provider) SetTokenStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenStatus = status
}

// SetTokenDelay holds token responses back, or until the client gives up.
func (p *Provider) SetTokenDelay(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokenDelay = d
}

// SetAllowedRedirectURIs restricts the redirect URIs accepted. With none set
// any redirect URI is accepted.
func (p *Provider) SetAllowedRedirectURIs(uris ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redirectURIs = uris
}

// SetUserInfo replaces the userinfo response. By default it returns only the
// configured subject.
func (p *Provider) SetUserInfo(claims map[string]any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfo = claims
}

func (p *Provider) SetUserInfoStatus(status int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.userInfoStatus = status
}

// DisableUserInfo drops the endpoint from discovery and makes it 404.
func (p *Provider) DisableUserInfo() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disableUserInfo = true
}

// Authorize plays the browser: it requests authURL from the provider and
// returns the code and state carried by the redirect back to the client.
func (p *Provider) Authorize(t testing.TB, authURL string) (code, state string) {
	t.Helper()

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(authURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	q := loc.Query()
	require.Empty(t, q.Get("error"), q.Get("error_description"))
	return q.Get("code"), q.Get("state")
}

func (p *Provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case DiscoveryPath:
		p.handleDiscovery(w, r)
	case AuthorizePath:
		p.handleAuthorize(w, r)
	case TokenPath:
		p.handleToken(w, r)
	case UserInfoPath:
		p.handleUserInfo(w, r)
	case KeysPath:
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, p.key.jwks())
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (p *Provider) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p.mu.Lock()
	disableUserInfo := p.disableUserInfo
	p.mu.Unlock()

	issuer := p.Issuer()
	reply := struct {
		Issuer            string   `json:"issuer"`
		AuthEndpoint      string   `json:"authorization_endpoint"`
		TokenEndpoint     string   `json:"token_endpoint"`
		JWKSURI           string   `json:"jwks_uri"`
		UserinfoEndpoint  string   `json:"userinfo_endpoint,omitempty"`
		Algs              []string `json:"id_token_signing_alg_values_supported"`
		ResponseTypes     []string `json:"response_types_supported"`
		SubjectTypes      []string `json:"subject_types_supported"`
		CodeChallengeMeth []string `json:"code_challenge_methods_supported"`
	}{
		Issuer:            issuer,
		AuthEndpoint:      issuer + AuthorizePath,
		TokenEndpoint:     issuer + TokenPath,
		JWKSURI:           issuer + KeysPath,
		UserinfoEndpoint:  issuer + UserInfoPath,
		Algs:              []string{SigningAlg},
		ResponseTypes:     []string{"code"},
		SubjectTypes:      []string{"public"},
		CodeChallengeMeth: []string{"S256"},
	}
	if disableUserInfo {
		reply.UserinfoEndpoint = ""
	}
	writeJSON(w, http.StatusOK, reply)
}

func (p *Provider) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()

	redirectURI := q.Get("redirect_uri")
	if redirectURI == "" {
		http.Error(w, "missing redirect_uri", http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.redirectURIs) > 0 && !slices.Contains(p.redirectURIs, redirectURI) {
		http.Error(w, "redirect_uri is not allowed", http.StatusBadRequest)
		return
	}

	switch {
	case q.Get("response_type") != "code":
		authError(w, r, "unsupported_response_type", "")
		return
	case q.Get("client_id") != p.clientID:
		authError(w, r, "unauthorized_client", "unknown client")
		return
	case !slices.Contains(strings.Fields(q.Get("scope")), "openid"):
		authError(w, r, "invalid_scope", "openid scope is required")
		return
	case q.Get("state") == "":
		authError(w, r, "invalid_request", "missing state parameter")
		return
	}

	code, err := utils.RandomString(16)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	p.codes[code] = authRequest{
		nonce:         q.Get("nonce"),
		challenge:     q.Get("code_challenge"),
		challengeMeth: q.Get("code_challenge_method"),
		redirectURI:   redirectURI,
	}

	dest := redirectURI + "?code=" + url.QueryEscape(code) + "&state=" + url.QueryEscape(q.Get("state"))
	http.Redirect(w, r, dest, http.StatusFound)
}

func (p *Provider) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p.tokenCalls.Add(1)

	p.mu.Lock()
	delay, status := p.tokenDelay, p.tokenStatus
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if status != 0 {
		tokenError(w, status, "server_error", "forced failure")
		return
	}
	if err := r.ParseForm(); err != nil {
		tokenError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	clientID, clientSecret, ok := basicAuth(r)
	if !ok {
		clientID, clientSecret = r.PostForm.Get("client_id"), r.PostForm.Get("client_secret")
	}
	if clientID != p.clientID || clientSecret != p.clientSecret {
		tokenError(w, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" {
		tokenError(w, http.StatusBadRequest, "unsupported_grant_type", "")
		return
	}

	code := r.PostForm.Get("code")
	req, ok := p.codes[code]
	if !ok {
		tokenError(w, http.StatusBadRequest, "invalid_grant", "unknown or used authorization code")
		return
	}
	delete(p.codes, code)

	if r.PostForm.Get("redirect_uri") != req.redirectURI {
		tokenError(w, http.StatusBadRequest, "invalid_grant", "redirect_uri mismatch")
		return
	}
	if req.challenge != "" && !verifyPKCE(req.challenge, req.challengeMeth, r.PostForm.Get("code_verifier")) {
		tokenError(w, http.StatusBadRequest, "invalid_grant", "PKCE verification failed")
		return
	}

	accessToken, err := utils.RandomString(32)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	p.accessTokens[accessToken] = struct{}{}

	reply := struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int    `json:"expires_in"`
		Scope       string `json:"scope,omitempty"`
		IDToken     string `json:"id_token,omitempty"`
	}{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   3600,
		Scope:       r.PostForm.Get("scope"),
	}
	if !p.omitIDToken {
		idToken, err := p.key.sign(p.idTokenClaims(req, accessToken))
		if err != nil {
			tokenError(w, http.StatusInternalServerError, "server_error", err.Error())
			return
		}
		reply.IDToken = idToken
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, reply)
}

// idTokenClaims must be called with p.mu held.
func (p *Provider) idTokenClaims(req authRequest, accessToken string) jwt.MapClaims {
	now := time.Now()
	claims := jwt.MapClaims{}
	for k, v := range p.customClaims {
		claims[k] = v
	}

	claims["iss"] = p.Issuer()
	if p.issuerClaim != "" {
		claims["iss"] = p.issuerClaim
	}
	claims["aud"] = p.clientID
	if p.audience != "" {
		claims["aud"] = p.audience
	}
	claims["sub"] = p.subject
	claims["iat"] = now.Add(-5 * time.Second).Unix()
	claims["exp"] = now.Add(p.idTokenTTL).Unix()
	claims["at_hash"] = accessTokenHash(accessToken)
	if p.atHash != "" {
		claims["at_hash"] = p.atHash
	}
	if req.nonce != "" {
		claims["nonce"] = req.nonce
	}
	if p.nonceClaim != "" {
		claims["nonce"] = p.nonceClaim
	}
	return claims
}

func (p *Provider) handleUserInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.disableUserInfo {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if _, known := p.accessTokens[bearer]; !ok || !known {
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if p.userInfoStatus != 0 {
		w.WriteHeader(p.userInfoStatus)
		return
	}

	reply := p.userInfo
	if reply == nil {
		reply = map[string]any{"sub": p.subject}
	}
	writeJSON(w, http.StatusOK, reply)
}

// basicAuth reads client credentials from the Authorization header. x/oauth2
// form-encodes both values before encoding the header.
func basicAuth(r *http.Request) (string, string, bool) {
	user, pass, ok := r.BasicAuth()
	if !ok {
		return "", "", false
	}
	u, err := url.QueryUnescape(user)
	if err != nil {
		return "", "", false
	}
	s, err := url.QueryUnescape(pass)
	if err != nil {
		return "", "", false
	}
	return u, s, true
}

func verifyPKCE(challenge, method, verifier string) bool {
	if method != "S256" || verifier == "" {
		return false
	}
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:]) == challenge
}

// accessTokenHash is the left half of the SHA-256 of the token, base64url
// encoded, as RS256 ID tokens carry it.
func accessTokenHash(accessToken string) string {
	sum := sha256.Sum256([]byte(accessToken))
	return base64.RawURLEncoding.EncodeToString(sum[:len(sum)/2])
}

func authError(w http.ResponseWriter, r *http.Request, code, desc string) {
	q := r.URL.Query()
	dest := q.Get("redirect_uri") + "?state=" + url.QueryEscape(q.Get("state")) + "&error=" + url.QueryEscape(code)
	if desc != "" {
		dest += "&error_description=" + url.QueryEscape(desc)
	}
	http.Redirect(w, r, dest, http.StatusFound)
}

func tokenError(w http.ResponseWriter, status int, code, desc string) {
	body := struct {
		Code string `json:"error"`
		Desc string `json:"error_description,omitempty"`
	}{code, desc}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
