package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"github.com/rs/zerolog"
)

// New returns the process logger: human readable console output in DEV,
// JSON lines everywhere else. An empty level means info.
func New(env, level string, w io.Writer) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, apperrors.ErrConfig)
		}
		lvl = parsed
	}

	out := w
	if strings.EqualFold(env, "DEV") {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger(), nil
}
