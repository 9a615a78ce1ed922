package config

import "time"

const (
	sessionSecretVar = "session_secret"
	sessionMaxAgeVar = "session_max_age"
	sweepIntervalVar = "sweep_interval"
)

type SessionConfig interface {
	GetSessionSecret() string
	GetMaxSessionAge() time.Duration
	GetSweepInterval() time.Duration
}

type Session struct {
	v viperReader
}

var _ SessionConfig = Session{}

func (s Session) GetSessionSecret() string {
	return s.v.GetString(sessionSecretVar)
}

func (s Session) GetMaxSessionAge() time.Duration {
	return s.v.GetDuration(sessionMaxAgeVar)
}

func (s Session) GetSweepInterval() time.Duration {
	return s.v.GetDuration(sweepIntervalVar)
}
