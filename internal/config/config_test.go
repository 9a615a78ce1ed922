package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-okta-login/internal/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c := config.New(viper.New())

	require.Equal(t, ":3000", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "http://localhost:3000/auth/okta/callback", c.GetCallbackURL())
	require.Equal(t, []string{"openid", "profile", "email"}, c.GetScopes())
	require.True(t, c.GetUsePKCE())
	require.True(t, c.GetFetchUserInfo())
	require.False(t, c.GetUseDiscovery())
	require.Equal(t, 10*time.Second, c.GetHTTPClientTimeout())
	require.Equal(t, 10*time.Minute, c.GetAuthStateTTL())
	require.Equal(t, 8*time.Hour, c.GetMaxSessionAge())
	require.Equal(t, config.StoreBackendMemory, c.GetStoreBackend())
}

func TestNew_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("port", ":8443")
	v.Set("okta_issuer_url", "https://dev-123.okta.com/oauth2/default/")
	v.Set("oidc_scopes", "openid,email groups")
	v.Set("env", "prod")

	c := config.New(v)
	require.Equal(t, ":8443", c.GetPort())
	require.Equal(t, "https://dev-123.okta.com/oauth2/default", c.GetIssuerURL())
	require.Equal(t, []string{"openid", "email", "groups"}, c.GetScopes())
	require.Equal(t, "PROD", c.GetEnv())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("OKTA_ISSUER_URL", "https://dev-123.okta.com")
	t.Setenv("OKTA_CLIENT_ID", "client-abc")
	t.Setenv("SESSION_MAX_AGE", "2h")
	t.Setenv("STORE_BACKEND", "Redis")

	c, err := config.Load("", nil)
	require.NoError(t, err)
	require.Equal(t, "https://dev-123.okta.com", c.GetIssuerURL())
	require.Equal(t, "client-abc", c.GetClientID())
	require.Equal(t, 2*time.Hour, c.GetMaxSessionAge())
	require.Equal(t, config.StoreBackendRedis, c.GetStoreBackend())
}

func TestLoad_FileAndFlags(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	content := "okta_client_id: from-file\nport: \"4000\"\nredis_db: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("port", "", "")
	require.NoError(t, flags.Parse([]string{"--port=5000"}))

	c, err := config.Load(path, flags)
	require.NoError(t, err)
	require.Equal(t, "from-file", c.GetClientID())
	require.Equal(t, ":5000", c.GetPort())
	require.Equal(t, 3, c.GetRedisDB())
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	require.Error(t, err)
}
