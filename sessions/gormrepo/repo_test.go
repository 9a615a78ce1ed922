package gormrepo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"github.com/jrsteele09/go-okta-login/sessions"
	"github.com/jrsteele09/go-okta-login/sessions/gormrepo"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestRepo(t *testing.T) *gormrepo.Repo {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	repo, err := gormrepo.New(db)
	require.NoError(t, err)
	return repo
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSession(id string, expires time.Time) *sessions.Session {
	return &sessions.Session{
		ID: id,
		Profile: sessions.UserProfile{
			Subject:       "00u1abcd",
			Issuer:        "https://dev-123.okta.com",
			Name:          "Jane Doe",
			EmailVerified: true,
			Groups:        []string{"Everyone"},
			Claims:        map[string]any{"locale": "en-GB"},
		},
		CreatedAt: base,
		ExpiresAt: expires,
	}
}

func TestRepo_PutAndGet(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	s := newSession("abc", base.Add(time.Hour))
	require.NoError(t, repo.Put(ctx, s))

	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, s.Profile, got.Profile)
	require.True(t, s.ExpiresAt.Equal(got.ExpiresAt))
	require.True(t, s.CreatedAt.Equal(got.CreatedAt))
}

func TestRepo_PutReplaces(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	s := newSession("abc", base.Add(time.Hour))
	require.NoError(t, repo.Put(ctx, s))

	s.Profile.Name = "Jane Smith"
	s.ExpiresAt = base.Add(2 * time.Hour)
	require.NoError(t, repo.Put(ctx, s))

	got, err := repo.Get(ctx, "abc")
	require.NoError(t, err)
	require.Equal(t, "Jane Smith", got.Profile.Name)
	require.True(t, s.ExpiresAt.Equal(got.ExpiresAt))
}

func TestRepo_GetUnknown(t *testing.T) {
	repo := setupTestRepo(t)
	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestRepo_Delete(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	require.NoError(t, repo.Put(ctx, newSession("abc", base.Add(time.Hour))))
	require.NoError(t, repo.Delete(ctx, "abc"))
	require.NoError(t, repo.Delete(ctx, "abc"))

	_, err := repo.Get(ctx, "abc")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestRepo_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := setupTestRepo(t)

	require.NoError(t, repo.Put(ctx, newSession("old", base.Add(time.Minute))))
	require.NoError(t, repo.Put(ctx, newSession("edge", base.Add(time.Hour))))
	require.NoError(t, repo.Put(ctx, newSession("live", base.Add(3*time.Hour))))

	n, err := repo.DeleteExpired(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 2, n)

	_, err = repo.Get(ctx, "live")
	require.NoError(t, err)
	_, err = repo.Get(ctx, "edge")
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}
