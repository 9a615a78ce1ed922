package redisrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"github.com/jrsteele09/go-okta-login/sessions"
	"github.com/jrsteele09/go-okta-login/sessions/redisrepo"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) (*redisrepo.Repo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return redisrepo.New(client), mr
}

func newSession(id string, ttl time.Duration) *sessions.Session {
	now := time.Now()
	return &sessions.Session{
		ID: id,
		Profile: sessions.UserProfile{
			Subject: "00u1abcd",
			Email:   "jane@example.com",
			Groups:  []string{"Everyone", "admins"},
			Claims:  map[string]any{"locale": "en-GB"},
		},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestRepo_PutAndGet(t *testing.T) {
	ctx := context.Background()
	repo, mr := setupTestRepo(t)

	s := newSession("abc", time.Hour)
	require.NoError(t, repo.Put(ctx, s))
	require.True(t, mr.Exists("session:abc"))

	ttl := mr.TTL("session:abc")
	require.Greater(t, ttl, 59*time.Minute)
	require.LessOrEqual(t, ttl, time.Hour)

	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, s.Profile.Subject, got.Profile.Subject)
	require.Equal(t, s.Profile.Groups, got.Profile.Groups)
	require.Equal(t, "en-GB", got.Profile.Claims["locale"])
	require.WithinDuration(t, s.ExpiresAt, got.ExpiresAt, time.Millisecond)
}

func TestRepo_GetUnknown(t *testing.T) {
	repo, _ := setupTestRepo(t)
	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestRepo_KeyExpires(t *testing.T) {
	ctx := context.Background()
	repo, mr := setupTestRepo(t)

	require.NoError(t, repo.Put(ctx, newSession("abc", time.Minute)))
	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "abc")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestRepo_Delete(t *testing.T) {
	ctx := context.Background()
	repo, mr := setupTestRepo(t)

	require.NoError(t, repo.Put(ctx, newSession("abc", time.Hour)))
	require.NoError(t, repo.Delete(ctx, "abc"))
	require.False(t, mr.Exists("session:abc"))
	require.NoError(t, repo.Delete(ctx, "abc"))
}

func TestRepo_PutRejectsExpired(t *testing.T) {
	repo, _ := setupTestRepo(t)
	require.Error(t, repo.Put(context.Background(), newSession("abc", -time.Second)))
	require.Error(t, repo.Put(context.Background(), nil))
}

func TestRepo_DeleteExpiredNoop(t *testing.T) {
	repo, _ := setupTestRepo(t)
	n, err := repo.DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	require.Zero(t, n)
}
