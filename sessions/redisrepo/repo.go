package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"github.com/jrsteele09/go-okta-login/sessions"
	"github.com/redis/go-redis/v9"
)

var _ sessions.Repo = (*Repo)(nil)

const sessionPrefix = "session:"

// Repo stores sessions as JSON values whose key TTL tracks ExpiresAt.
type Repo struct {
	client *redis.Client
	now    func() time.Time
}

func New(client *redis.Client) *Repo {
	return &Repo{client: client, now: time.Now}
}

func (r *Repo) Put(ctx context.Context, session *sessions.Session) error {
	if session == nil || session.ID == "" {
		return errors.New("session id is required")
	}

	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("session %q already expired", session.ID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := r.client.Set(ctx, sessionPrefix+session.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*sessions.Session, error) {
	data, err := r.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session %q: %w", id, apperrors.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var session sessions.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op; key TTLs do the work.
func (r *Repo) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
