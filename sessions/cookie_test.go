package sessions_test

import (
	"strings"
	"testing"

	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"github.com/jrsteele09/go-okta-login/sessions"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestCookieCodec_RoundTrip(t *testing.T) {
	codec, err := sessions.NewCookieCodec(testSecret)
	require.NoError(t, err)

	value := codec.Encode("session-id-1")
	require.True(t, strings.HasPrefix(value, "session-id-1."))

	id, ok := codec.Decode(value)
	require.True(t, ok)
	require.Equal(t, "session-id-1", id)
}

func TestCookieCodec_RejectsTampering(t *testing.T) {
	codec, err := sessions.NewCookieCodec(testSecret)
	require.NoError(t, err)
	value := codec.Encode("session-id-1")
	_, mac, _ := strings.Cut(value, ".")

	cases := map[string]string{
		"empty":        "",
		"no mac":       "session-id-1",
		"swapped id":   "session-id-2." + mac,
		"bad mac":      "session-id-1.AAAA",
		"missing id":   "." + mac,
		"trailing dot": "session-id-1.",
	}
	for name, v := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok := codec.Decode(v)
			require.False(t, ok)
		})
	}

	t.Run("other secret", func(t *testing.T) {
		other, err := sessions.NewCookieCodec(strings.Repeat("z", 40))
		require.NoError(t, err)
		_, ok := other.Decode(value)
		require.False(t, ok)
	})
}

func TestNewCookieCodec_ShortSecret(t *testing.T) {
	_, err := sessions.NewCookieCodec("too-short")
	require.ErrorIs(t, err, apperrors.ErrConfig)
}
