package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-okta-login/authflow"
	authflowredis "github.com/jrsteele09/go-okta-login/authflow/redisrepo"
	"github.com/jrsteele09/go-okta-login/internal/config"
	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"github.com/jrsteele09/go-okta-login/internal/storage"
	"github.com/jrsteele09/go-okta-login/sessions"
	"github.com/jrsteele09/go-okta-login/sessions/gormrepo"
	sessionsredis "github.com/jrsteele09/go-okta-login/sessions/redisrepo"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func storeConfig(values map[string]any) config.StoreConfig {
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return config.New(v)
}

func roundTrip(t *testing.T, stores *storage.Stores) {
	t.Helper()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, stores.Sessions.Put(ctx, &sessions.Session{
		ID:        "sid",
		Profile:   sessions.UserProfile{Subject: "sub"},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))
	got, err := stores.Sessions.Get(ctx, "sid")
	require.NoError(t, err)
	require.Equal(t, "sub", got.Profile.Subject)

	st, err := authflow.NewState(now, time.Minute, true)
	require.NoError(t, err)
	require.NoError(t, stores.States.Save(ctx, st))
	consumed, err := stores.States.Consume(ctx, st.ID)
	require.NoError(t, err)
	require.Equal(t, st.Nonce, consumed.Nonce)
}

func TestOpen_Memory(t *testing.T) {
	stores, err := storage.Open(context.Background(), storeConfig(nil))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, stores.Close()) })

	require.Equal(t, config.StoreBackendMemory, stores.Backend)
	require.IsType(t, &sessions.InMemoryRepo{}, stores.Sessions)
	roundTrip(t, stores)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	stores, err := storage.Open(context.Background(), storeConfig(map[string]any{
		"store_backend": "redis",
		"redis_addr":    mr.Addr(),
	}))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, stores.Close()) })

	require.IsType(t, &authflowredis.Repo{}, stores.States)
	require.IsType(t, &sessionsredis.Repo{}, stores.Sessions)
	roundTrip(t, stores)
	require.True(t, mr.Exists("session:sid"))
}

func TestOpen_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := storage.Open(context.Background(), storeConfig(map[string]any{
		"store_backend": "redis",
		"redis_addr":    addr,
	}))
	require.Error(t, err)
}

func TestOpen_SQL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")

	stores, err := storage.Open(context.Background(), storeConfig(map[string]any{
		"store_backend": "SQL",
		"sql_path":      path,
	}))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, stores.Close()) })

	require.IsType(t, &gormrepo.Repo{}, stores.Sessions)
	require.IsType(t, &authflow.InMemoryRepo{}, stores.States)
	roundTrip(t, stores)
	require.FileExists(t, path)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := storage.Open(context.Background(), storeConfig(map[string]any{"store_backend": "etcd"}))
	require.ErrorIs(t, err, apperrors.ErrConfig)
}
