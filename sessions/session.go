package sessions

import (
	"strings"
	"time"
)

// UserProfile is the identity established by a successful login. It lives
// exactly as long as the Session that owns it.
type UserProfile struct {
	Subject           string         `json:"sub"`
	Issuer            string         `json:"iss"`
	Name              string         `json:"name,omitempty"`
	GivenName         string         `json:"given_name,omitempty"`
	FamilyName        string         `json:"family_name,omitempty"`
	PreferredUsername string         `json:"preferred_username,omitempty"`
	Email             string         `json:"email,omitempty"`
	EmailVerified     bool           `json:"email_verified,omitempty"`
	Groups            []string       `json:"groups,omitempty"`
	Claims            map[string]any `json:"claims,omitempty"`
}

// DisplayName picks the friendliest name the provider gave us.
func (p UserProfile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if full := strings.TrimSpace(p.GivenName + " " + p.FamilyName); full != "" {
		return full
	}
	if p.PreferredUsername != "" {
		return p.PreferredUsername
	}
	if p.Email != "" {
		return p.Email
	}
	return p.Subject
}

// Session binds an opaque identifier to a UserProfile. Only the ID ever
// leaves the server.
type Session struct {
	ID        string      `json:"id"`
	Profile   UserProfile `json:"profile"`
	CreatedAt time.Time   `json:"created_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Clone returns a copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	c := *s
	if s.Profile.Groups != nil {
		c.Profile.Groups = append([]string(nil), s.Profile.Groups...)
	}
	if s.Profile.Claims != nil {
		c.Profile.Claims = copyClaimMap(s.Profile.Claims)
	}
	return &c
}

// copyClaimMap copies nested JSON objects and arrays as well; claims such as
// "address" or "groups" arrive as map[string]any and []any.
func copyClaimMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyClaimValue(v)
	}
	return out
}

func copyClaimValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyClaimMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyClaimValue(e)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
