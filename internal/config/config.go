package config

import "github.com/spf13/viper"

type Config interface {
	EnvConfig
	OIDCConfig
	SessionConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	OIDC
	Session
	Store
}

// New builds a Config over v. Defaults are applied to v.
func New(v *viper.Viper) Config {
	setDefaults(v)
	return mainConfig{
		EnvVars: EnvVars{v: v},
		OIDC:    OIDC{v: v},
		Session: Session{v: v},
		Store:   Store{v: v},
	}
}
