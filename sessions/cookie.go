package sessions

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"golang.org/x/crypto/hkdf"
)

// MinSecretLength is the shortest session secret accepted.
const MinSecretLength = 32

var cookieKeyInfo = []byte("go-okta-login session cookie v1")

// CookieCodec signs session ids for use as cookie values. The value is
// "<id>.<mac>"; the profile itself is never placed in the cookie.
type CookieCodec struct {
	key []byte
}

// NewCookieCodec derives the MAC key from secret with HKDF-SHA256.
func NewCookieCodec(secret string) (*CookieCodec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes: %w", MinSecretLength, apperrors.ErrConfig)
	}

	key := make([]byte, sha256.Size)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, cookieKeyInfo), key); err != nil {
		return nil, fmt.Errorf("derive cookie key: %w", err)
	}
	return &CookieCodec{key: key}, nil
}

func (c *CookieCodec) Encode(id string) string {
	return id + "." + c.mac(id)
}

// Decode returns the session id if value carries a valid MAC.
func (c *CookieCodec) Decode(value string) (string, bool) {
	id, mac, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	if !hmac.Equal([]byte(mac), []byte(c.mac(id))) {
		return "", false
	}
	return id, true
}

func (c *CookieCodec) mac(id string) string {
	h := hmac.New(sha256.New, c.key)
	h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
