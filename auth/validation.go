package auth

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-okta-login/authflow"
)

// minStateLength is the encoded length of the shortest state token this
// service ever issues.
var minStateLength = base64.RawURLEncoding.EncodedLen(authflow.TokenBytes)

// ValidateState checks the shape of a state parameter returned by the
// provider. It says nothing about whether the state is pending.
func ValidateState(state string) error {
	if state == "" {
		return fmt.Errorf("state parameter is required")
	}
	if len(state) < minStateLength {
		return fmt.Errorf("state parameter is too short")
	}
	if strings.ContainsAny(state, " \t\r\n") {
		return fmt.Errorf("state parameter must not contain whitespace")
	}
	return nil
}

// SanitizeReturnURL keeps raw only when it is a path on this site. Anything
// that could send the browser to another origin comes back empty.
func SanitizeReturnURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || !strings.HasPrefix(raw, "/") {
		return ""
	}
	// "//host" and "/\host" are treated as host references by browsers
	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return ""
	}
	if strings.ContainsAny(raw, "\r\n") {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return ""
	}
	u.Fragment = ""
	return u.RequestURI()
}
