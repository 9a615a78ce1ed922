package config

import (
	"strings"
	"time"
)

const (
	issuerURLVar        = "okta_issuer_url"
	authorizationURLVar = "okta_authorization_url"
	tokenURLVar         = "okta_token_url"
	userInfoURLVar      = "okta_userinfo_url"
	jwksURLVar          = "okta_jwks_url"
	clientIDVar         = "okta_client_id"
	clientSecretVar     = "okta_client_secret"
	callbackURLVar      = "okta_callback_url"
	scopesVar           = "oidc_scopes"
	discoveryVar        = "oidc_discovery"
	pkceVar             = "oidc_pkce"
	userInfoVar         = "oidc_userinfo"
	httpTimeoutVar      = "http_client_timeout"
	authStateTTLVar     = "auth_state_ttl"
)

// OIDCConfig holds everything needed to talk to the identity provider.
// Endpoint URLs are optional; empty values are derived from the issuer.
type OIDCConfig interface {
	GetIssuerURL() string
	GetAuthorizationURL() string
	GetTokenURL() string
	GetUserInfoURL() string
	GetJWKSURL() string
	GetClientID() string
	GetClientSecret() string
	GetCallbackURL() string
	GetScopes() []string
	GetUseDiscovery() bool
	GetUsePKCE() bool
	GetFetchUserInfo() bool
	GetHTTPClientTimeout() time.Duration
	GetAuthStateTTL() time.Duration
}

type OIDC struct {
	v viperReader
}

var _ OIDCConfig = OIDC{}

func (o OIDC) GetIssuerURL() string {
	return strings.TrimSuffix(o.v.GetString(issuerURLVar), "/")
}

func (o OIDC) GetAuthorizationURL() string { return o.v.GetString(authorizationURLVar) }
func (o OIDC) GetTokenURL() string         { return o.v.GetString(tokenURLVar) }
func (o OIDC) GetUserInfoURL() string      { return o.v.GetString(userInfoURLVar) }
func (o OIDC) GetJWKSURL() string          { return o.v.GetString(jwksURLVar) }
func (o OIDC) GetClientID() string         { return o.v.GetString(clientIDVar) }
func (o OIDC) GetClientSecret() string     { return o.v.GetString(clientSecretVar) }
func (o OIDC) GetCallbackURL() string      { return o.v.GetString(callbackURLVar) }

// GetScopes accepts space or comma separated scope lists.
func (o OIDC) GetScopes() []string {
	raw := o.v.GetString(scopesVar)
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ','
	})
}

func (o OIDC) GetUseDiscovery() bool {
	return o.v.GetBool(discoveryVar)
}

func (o OIDC) GetUsePKCE() bool {
	return o.v.GetBool(pkceVar)
}

func (o OIDC) GetFetchUserInfo() bool {
	return o.v.GetBool(userInfoVar)
}

func (o OIDC) GetHTTPClientTimeout() time.Duration {
	return o.v.GetDuration(httpTimeoutVar)
}

func (o OIDC) GetAuthStateTTL() time.Duration {
	return o.v.GetDuration(authStateTTLVar)
}
