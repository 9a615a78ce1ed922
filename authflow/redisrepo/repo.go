package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-okta-login/authflow"
	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ authflow.Repo = (*Repo)(nil)

const statePrefix = "authflow:state:"

// Repo implements authflow.Repo using Redis. Expiry is handled by key TTLs
// and single use by GETDEL.
type Repo struct {
	client *redis.Client
	now    func() time.Time
}

// New creates a Redis-backed pending state repository
func New(client *redis.Client) *Repo {
	return &Repo{client: client, now: time.Now}
}

// Save stores the state with a TTL matching its expiry. SETNX keeps a pending
// token from being overwritten.
func (r *Repo) Save(ctx context.Context, st *authflow.State) error {
	if st == nil || st.ID == "" {
		return errors.New("state id cannot be empty")
	}

	ttl := st.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("state %q already expired", st.ID)
	}

	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	ok, err := r.client.SetNX(ctx, statePrefix+st.ID, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	if !ok {
		return fmt.Errorf("state %q already pending", st.ID)
	}
	return nil
}

// Consume atomically fetches and deletes the state
func (r *Repo) Consume(ctx context.Context, id string) (*authflow.State, error) {
	if id == "" {
		return nil, fmt.Errorf("empty state: %w", apperrors.ErrInvalidState)
	}

	data, err := r.client.GetDel(ctx, statePrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("state not pending: %w", apperrors.ErrInvalidState)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume state: %w", err)
	}

	var st authflow.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	if st.IsExpired(r.now()) {
		return nil, fmt.Errorf("state expired: %w", apperrors.ErrInvalidState)
	}
	return &st, nil
}

// DeleteExpired is a no-op; Redis expires keys on its own.
func (r *Repo) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
