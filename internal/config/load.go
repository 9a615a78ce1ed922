package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type viperReader interface {
	GetString(key string) string
	GetBool(key string) bool
	GetInt(key string) int
	GetDuration(key string) time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(portEnvVar, "3000")
	v.SetDefault(appNameVar, "Okta Login")
	v.SetDefault(envVar, "DEV")
	v.SetDefault(logLevelEnvVar, "info")

	v.SetDefault(callbackURLVar, "http://localhost:3000/auth/okta/callback")
	v.SetDefault(scopesVar, "openid profile email")
	v.SetDefault(discoveryVar, false)
	v.SetDefault(pkceVar, true)
	v.SetDefault(userInfoVar, true)
	v.SetDefault(httpTimeoutVar, 10*time.Second)
	v.SetDefault(authStateTTLVar, 10*time.Minute)

	v.SetDefault(sessionMaxAgeVar, 8*time.Hour)
	v.SetDefault(sweepIntervalVar, time.Minute)

	v.SetDefault(storeBackendVar, StoreBackendMemory)
	v.SetDefault(redisAddrVar, "localhost:6379")
	v.SetDefault(redisDBVar, 0)
	v.SetDefault(sqlPathVar, "./data/sessions.db")
}

// Load reads configuration from the environment, an optional config file and
// any flags already registered on flags. Environment names are the upper case
// keys, e.g. OKTA_ISSUER_URL.
func Load(configFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return New(v), nil
}
