package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RandomString returns length random bytes encoded as unpadded base64url.
func RandomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
