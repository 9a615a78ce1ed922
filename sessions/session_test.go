package sessions_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"github.com/jrsteele09/go-okta-login/sessions"
	"github.com/stretchr/testify/require"
)

func TestUserProfile_DisplayName(t *testing.T) {
	tests := []struct {
		name    string
		profile sessions.UserProfile
		want    string
	}{
		{"name", sessions.UserProfile{Subject: "s", Name: "Jane Doe", Email: "j@x"}, "Jane Doe"},
		{"given and family", sessions.UserProfile{Subject: "s", GivenName: "Jane", FamilyName: "Doe"}, "Jane Doe"},
		{"username", sessions.UserProfile{Subject: "s", PreferredUsername: "jane@okta"}, "jane@okta"},
		{"email", sessions.UserProfile{Subject: "s", Email: "j@x"}, "j@x"},
		{"subject", sessions.UserProfile{Subject: "00u1"}, "00u1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.profile.DisplayName())
		})
	}
}

func TestInMemoryRepo(t *testing.T) {
	ctx := context.Background()
	repo := sessions.NewInMemoryRepo()
	now := time.Now()

	s := &sessions.Session{
		ID:        "id-1",
		Profile:   sessions.UserProfile{Subject: "sub", Groups: []string{"admins"}},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	require.NoError(t, repo.Put(ctx, s))
	require.Error(t, repo.Put(ctx, &sessions.Session{}))

	got, err := repo.Get(ctx, "id-1")
	require.NoError(t, err)
	got.Profile.Groups[0] = "mutated"

	again, err := repo.Get(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, "admins", again.Profile.Groups[0], "repo hands out copies")

	n, err := repo.DeleteExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = repo.Get(ctx, "id-1")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	require.NoError(t, repo.Delete(ctx, "id-1"))
}

func TestInMemoryRepo_NestedClaimsAreCopied(t *testing.T) {
	ctx := context.Background()
	repo := sessions.NewInMemoryRepo()
	now := time.Now()

	require.NoError(t, repo.Put(ctx, &sessions.Session{
		ID: "id-1",
		Profile: sessions.UserProfile{
			Subject: "sub",
			Claims: map[string]any{
				"groups":  []any{"admins", "users"},
				"address": map[string]any{"country": "GB", "lines": []any{"1 High St"}},
			},
		},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))

	got, err := repo.Get(ctx, "id-1")
	require.NoError(t, err)
	got.Profile.Claims["groups"].([]any)[0] = "mutated"
	address := got.Profile.Claims["address"].(map[string]any)
	address["country"] = "FR"
	address["lines"].([]any)[0] = "mutated"

	again, err := repo.Get(ctx, "id-1")
	require.NoError(t, err)
	require.Equal(t, []any{"admins", "users"}, again.Profile.Claims["groups"])
	require.Equal(t, map[string]any{"country": "GB", "lines": []any{"1 High St"}}, again.Profile.Claims["address"])
}

func TestSession_CloneCopiesNestedClaims(t *testing.T) {
	s := &sessions.Session{
		ID: "id-1",
		Profile: sessions.UserProfile{
			Subject: "sub",
			Claims:  map[string]any{"roles": []string{"reader"}, "amr": []any{"pwd"}},
		},
	}

	c := s.Clone()
	c.Profile.Claims["roles"].([]string)[0] = "writer"
	c.Profile.Claims["amr"].([]any)[0] = "mfa"

	require.Equal(t, []string{"reader"}, s.Profile.Claims["roles"])
	require.Equal(t, []any{"pwd"}, s.Profile.Claims["amr"])
}
