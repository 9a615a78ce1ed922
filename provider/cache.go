package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/hashicorp/go-cleanhttp"
	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultHTTPTimeout bounds every outbound call to the provider.
const DefaultHTTPTimeout = 10 * time.Second

// Cache holds the provider metadata and signing key set for the lifetime of
// the process. Metadata is resolved once in NewCache and never refreshed;
// signing keys are fetched from the JWKS endpoint on first use and again
// when a token carries an unknown key id.
type Cache struct {
	config       *Config
	client       *http.Client
	provider     *oidc.Provider
	oauth2Config oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

type cacheOptions struct {
	withDiscovery  bool
	withHTTPClient *http.Client
	withTimeout    time.Duration
}

type Option func(*cacheOptions)

// WithDiscovery fetches the provider's metadata from its
// /.well-known/openid-configuration document instead of using the
// configured endpoints.
func WithDiscovery(enabled bool) Option {
	return func(o *cacheOptions) { o.withDiscovery = enabled }
}

// WithHTTPClient overrides the pooled client used for provider calls.
func WithHTTPClient(c *http.Client) Option {
	return func(o *cacheOptions) { o.withHTTPClient = c }
}

// WithTimeout sets the outbound request timeout. Ignored when WithHTTPClient
// is also used.
func WithTimeout(d time.Duration) Option {
	return func(o *cacheOptions) { o.withTimeout = d }
}

// NewCache resolves the provider described by cfg. In static mode no network
// call is made; with discovery one request is made to the issuer.
func NewCache(ctx context.Context, cfg *Config, opt ...Option) (*Cache, error) {
	const op = "provider.NewCache"
	if cfg == nil {
		return nil, fmt.Errorf("%s: config is nil: %w", op, apperrors.ErrConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	opts := cacheOptions{withTimeout: DefaultHTTPTimeout}
	for _, o := range opt {
		o(&opts)
	}

	client := opts.withHTTPClient
	if client == nil {
		client = cleanhttp.DefaultPooledClient()
		client.Timeout = opts.withTimeout
	}

	c := &Cache{config: cfg, client: client}

	// The key set keeps the context it was created with for later JWKS
	// fetches, so it must outlive ctx.
	keySetCtx := oidc.ClientContext(context.WithoutCancel(ctx), client)

	if opts.withDiscovery {
		p, err := oidc.NewProvider(keySetCtx, cfg.Issuer)
		if err != nil {
			return nil, fmt.Errorf("%s: discovery for %s: %w", op, cfg.Issuer, err)
		}
		c.provider = p
		log.Debug().Str("issuer", cfg.Issuer).Msg("provider metadata discovered")
	} else {
		pc := &oidc.ProviderConfig{
			IssuerURL:   cfg.Issuer,
			AuthURL:     cfg.AuthURL,
			TokenURL:    cfg.TokenURL,
			UserInfoURL: cfg.UserInfoURL,
			JWKSURL:     cfg.JWKSURL,
			Algorithms:  cfg.SigningAlgs,
		}
		c.provider = pc.NewProvider(keySetCtx)
	}

	endpoint := c.provider.Endpoint()
	endpoint.AuthStyle = oauth2.AuthStyleInHeader

	c.oauth2Config = oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: string(cfg.ClientSecret),
		Endpoint:     endpoint,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       cfg.Scopes,
	}
	c.verifier = c.provider.Verifier(&oidc.Config{
		ClientID:             cfg.ClientID,
		SupportedSigningAlgs: cfg.SigningAlgs,
	})
	return c, nil
}

func (c *Cache) Config() *Config { return c.config }

func (c *Cache) Provider() *oidc.Provider { return c.provider }

func (c *Cache) Verifier() *oidc.IDTokenVerifier { return c.verifier }

// OAuth2Config returns a copy that callers may modify.
func (c *Cache) OAuth2Config() *oauth2.Config {
	cfg := c.oauth2Config
	cfg.Scopes = append([]string(nil), c.oauth2Config.Scopes...)
	return &cfg
}

// ClientContext attaches the provider HTTP client to ctx so that oauth2 and
// go-oidc calls made with it use the bounded client.
func (c *Cache) ClientContext(ctx context.Context) context.Context {
	return oidc.ClientContext(ctx, c.client)
}

func (c *Cache) SupportsUserInfo() bool {
	return c.provider.UserInfoEndpoint() != ""
}
