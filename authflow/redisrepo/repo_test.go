package redisrepo_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jrsteele09/go-okta-login/authflow"
	"github.com/jrsteele09/go-okta-login/authflow/redisrepo"
	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
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

func newState(t *testing.T, ttl time.Duration) *authflow.State {
	t.Helper()
	st, err := authflow.NewState(time.Now(), ttl, true)
	require.NoError(t, err)
	return st
}

func TestRepo_SaveAndConsume(t *testing.T) {
	ctx := context.Background()
	repo, mr := setupTestRepo(t)
	st := newState(t, 10*time.Minute)
	st.ReturnURL = "/profile"

	require.NoError(t, repo.Save(ctx, st))
	require.True(t, mr.Exists("authflow:state:"+st.ID))
	require.InDelta(t, (10 * time.Minute).Seconds(), mr.TTL("authflow:state:"+st.ID).Seconds(), 2)

	got, err := repo.Consume(ctx, st.ID)
	require.NoError(t, err)
	require.Equal(t, st.Nonce, got.Nonce)
	require.Equal(t, st.CodeVerifier, got.CodeVerifier)
	require.Equal(t, "/profile", got.ReturnURL)
	require.False(t, mr.Exists("authflow:state:"+st.ID))

	_, err = repo.Consume(ctx, st.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestRepo_SaveRejectsDuplicateAndExpired(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestRepo(t)

	st := newState(t, time.Minute)
	require.NoError(t, repo.Save(ctx, st))
	require.Error(t, repo.Save(ctx, st))

	old := newState(t, time.Minute)
	old.ExpiresAt = time.Now().Add(-time.Second)
	require.Error(t, repo.Save(ctx, old))
}

func TestRepo_ConsumeAfterTTL(t *testing.T) {
	ctx := context.Background()
	repo, mr := setupTestRepo(t)
	st := newState(t, time.Minute)
	require.NoError(t, repo.Save(ctx, st))

	mr.FastForward(2 * time.Minute)

	_, err := repo.Consume(ctx, st.ID)
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestRepo_ConsumeUnknown(t *testing.T) {
	repo, _ := setupTestRepo(t)
	_, err := repo.Consume(context.Background(), "unknown-value")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = repo.Consume(context.Background(), "")
	require.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestRepo_ConcurrentConsumeSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestRepo(t)
	st := newState(t, time.Minute)
	require.NoError(t, repo.Save(ctx, st))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.Consume(ctx, st.ID); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())
}

func TestRepo_DeleteExpiredNoop(t *testing.T) {
	repo, _ := setupTestRepo(t)
	n, err := repo.DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	require.Zero(t, n)
}
