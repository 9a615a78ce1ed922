package config

import (
	"fmt"
	"strings"
)

const (
	portEnvVar     = "port"
	appNameVar     = "app_name"
	envVar         = "env"
	logLevelEnvVar = "log_level"
)

type EnvVars struct {
	v viperReader
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.v.GetString(portEnvVar)
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.v.GetString(appNameVar)
}

func (e EnvVars) GetEnv() string {
	return strings.ToUpper(e.v.GetString(envVar))
}

func (e EnvVars) GetLogLevel() string {
	return e.v.GetString(logLevelEnvVar)
}
