package auth

import (
	"strconv"

	"github.com/jrsteele09/go-okta-login/internal/utils"
	"github.com/jrsteele09/go-okta-login/sessions"
)

// sessionOnlyClaims are per-login values with no meaning once the session
// exists.
var sessionOnlyClaims = []string{"nonce", "at_hash", "c_hash"}

func profileFromClaims(claims map[string]any) sessions.UserProfile {
	p := sessions.UserProfile{
		Subject:           stringClaim(claims, "sub"),
		Issuer:            stringClaim(claims, "iss"),
		Name:              stringClaim(claims, "name"),
		GivenName:         stringClaim(claims, "given_name"),
		FamilyName:        stringClaim(claims, "family_name"),
		PreferredUsername: stringClaim(claims, "preferred_username"),
		Email:             stringClaim(claims, "email"),
		EmailVerified:     boolClaim(claims, "email_verified"),
		Claims:            make(map[string]any, len(claims)),
	}
	if groups, ok := claims["groups"].([]any); ok {
		p.Groups = utils.ToStringSlice(groups)
	}
	for k, v := range claims {
		p.Claims[k] = v
	}
	for _, k := range sessionOnlyClaims {
		delete(p.Claims, k)
	}
	return p
}

func stringClaim(claims map[string]any, key string) string {
	s, _ := claims[key].(string)
	return s
}

// boolClaim accepts "true" as well, which some providers send.
func boolClaim(claims map[string]any, key string) bool {
	switch v := claims[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}
