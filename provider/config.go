package provider

import (
	"encoding/json"
	"fmt"
	"net/url"
	"slices"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-multierror"
	"github.com/jrsteele09/go-okta-login/internal/config"
	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
)

// Okta authorization server endpoint layout, relative to the issuer.
const (
	oktaAuthorizePath = "/v1/authorize"
	oktaTokenPath     = "/v1/token"
	oktaUserInfoPath  = "/v1/userinfo"
	oktaKeysPath      = "/v1/keys"
)

type ClientSecret string

// RedactedClientSecret is what a ClientSecret prints as.
const RedactedClientSecret = "[REDACTED: client secret]"

func (s ClientSecret) String() string {
	return RedactedClientSecret
}

func (s ClientSecret) MarshalJSON() ([]byte, error) {
	return json.Marshal(RedactedClientSecret)
}

// Config is the resolved, validated description of the identity provider and
// of this relying party's client registration. It is not modified after
// Resolve returns it.
type Config struct {
	Issuer       string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	JWKSURL      string
	ClientID     string
	ClientSecret ClientSecret
	RedirectURL  string
	Scopes       []string
	SigningAlgs  []string
}

// Resolve validates settings and fills in any endpoint that was not set
// explicitly. Every problem found is reported, wrapped in ErrConfig.
func Resolve(settings config.OIDCConfig) (*Config, error) {
	c := &Config{
		Issuer:       settings.GetIssuerURL(),
		AuthURL:      settings.GetAuthorizationURL(),
		TokenURL:     settings.GetTokenURL(),
		UserInfoURL:  settings.GetUserInfoURL(),
		JWKSURL:      settings.GetJWKSURL(),
		ClientID:     settings.GetClientID(),
		ClientSecret: ClientSecret(settings.GetClientSecret()),
		RedirectURL:  settings.GetCallbackURL(),
		Scopes:       normaliseScopes(settings.GetScopes()),
		SigningAlgs:  []string{oidc.RS256},
	}

	if c.Issuer != "" {
		if c.AuthURL == "" {
			c.AuthURL = c.Issuer + oktaAuthorizePath
		}
		if c.TokenURL == "" {
			c.TokenURL = c.Issuer + oktaTokenPath
		}
		if c.UserInfoURL == "" {
			c.UserInfoURL = c.Issuer + oktaUserInfoPath
		}
		if c.JWKSURL == "" {
			c.JWKSURL = c.Issuer + oktaKeysPath
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks required fields and URL syntax.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.ClientID == "" {
		result = multierror.Append(result, fmt.Errorf("client id is required"))
	}
	if c.ClientSecret == "" {
		result = multierror.Append(result, fmt.Errorf("client secret is required"))
	}

	urls := []struct {
		name     string
		value    string
		required bool
	}{
		{"issuer", c.Issuer, true},
		{"redirect url", c.RedirectURL, true},
		{"authorization url", c.AuthURL, true},
		{"token url", c.TokenURL, true},
		{"jwks url", c.JWKSURL, true},
		{"userinfo url", c.UserInfoURL, false},
	}
	for _, u := range urls {
		if u.value == "" {
			if u.required {
				result = multierror.Append(result, fmt.Errorf("%s is required", u.name))
			}
			continue
		}
		if err := validateURL(u.value); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", u.name, err))
		}
	}

	if !slices.Contains(c.Scopes, oidc.ScopeOpenID) {
		result = multierror.Append(result, fmt.Errorf("scopes must include %q", oidc.ScopeOpenID))
	}

	if err := result.ErrorOrNil(); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrConfig, err)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("malformed url %q: %w", raw, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("url %q must not contain a query or fragment", raw)
	}
	return nil
}

// normaliseScopes drops duplicates and puts openid first.
func normaliseScopes(scopes []string) []string {
	out := []string{oidc.ScopeOpenID}
	for _, s := range scopes {
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
	}
	return out
}
