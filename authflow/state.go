package authflow

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-okta-login/internal/utils"
	"golang.org/x/oauth2"
)

// TokenBytes is the number of random bytes behind a state token or nonce
// (256 bits).
const TokenBytes = 32

// DefaultTTL is how long a login attempt may stay pending.
const DefaultTTL = 10 * time.Minute

// State is the server-side record of one in-flight login attempt, keyed by
// the state token sent to the provider. It is consumed exactly once.
type State struct {
	ID           string    `json:"id"`
	Nonce        string    `json:"nonce"`
	CodeVerifier string    `json:"code_verifier,omitempty"`
	ReturnURL    string    `json:"return_url,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewState creates a State with a fresh state token and nonce. When withPKCE
// is set a PKCE code verifier is generated as well.
func NewState(now time.Time, ttl time.Duration, withPKCE bool) (*State, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("state ttl must be greater than zero")
	}

	id, err := utils.RandomString(TokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate state token: %w", err)
	}
	nonce, err := utils.RandomString(TokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	st := &State{
		ID:        id,
		Nonce:     nonce,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if withPKCE {
		st.CodeVerifier = oauth2.GenerateVerifier()
	}
	return st, nil
}

func (s *State) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *State) clone() *State {
	c := *s
	return &c
}
