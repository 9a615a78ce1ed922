package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
	"github.com/jrsteele09/go-okta-login/internal/utils"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// IDBytes is the number of random bytes in a session id (256 bits)
	IDBytes = 32

	DefaultMaxAge = 8 * time.Hour
)

// Manager issues, resolves and revokes sessions on top of a Repo.
type Manager struct {
	repo   Repo
	maxAge time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

type ManagerOption func(*Manager)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

func WithLogger(l zerolog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager. A non-positive maxAge uses DefaultMaxAge.
func NewManager(repo Repo, maxAge time.Duration, opts ...ManagerOption) *Manager {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	m := &Manager{
		repo:   repo,
		maxAge: maxAge,
		now:    time.Now,
		logger: log.Logger,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

func (m *Manager) MaxAge() time.Duration { return m.maxAge }

// Issue creates and stores a new session for profile.
func (m *Manager) Issue(ctx context.Context, profile UserProfile) (*Session, error) {
	if profile.Subject == "" {
		return nil, errors.New("[sessions Issue] profile has no subject")
	}

	id, err := utils.RandomString(IDBytes)
	if err != nil {
		return nil, fmt.Errorf("[sessions Issue] generate id: %w", err)
	}

	now := m.now()
	session := &Session{
		ID:        id,
		Profile:   profile,
		CreatedAt: now,
		ExpiresAt: now.Add(m.maxAge),
	}
	if err := m.repo.Put(ctx, session); err != nil {
		return nil, fmt.Errorf("[sessions Issue] store session: %w", err)
	}
	return session.Clone(), nil
}

// Resolve returns the live session for id. It fails closed: unknown ids,
// expired sessions and store errors all report false.
func (m *Manager) Resolve(ctx context.Context, id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}

	session, err := m.repo.Get(ctx, id)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrSessionNotFound) {
			m.logger.Err(err).Msg("session lookup failed")
		}
		return nil, false
	}

	if session.IsExpired(m.now()) {
		if err := m.repo.Delete(ctx, id); err != nil {
			m.logger.Err(err).Msg("failed to delete expired session")
		}
		return nil, false
	}
	return session, true
}

// Revoke deletes the session. Revoking an unknown id is not an error.
func (m *Manager) Revoke(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("[sessions Revoke] %w", err)
	}
	return nil
}

// Expirer is anything that can drop its expired entries.
type Expirer interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// Sweep removes expired sessions and expired entries of others.
func (m *Manager) Sweep(ctx context.Context, others ...Expirer) {
	now := m.now()
	for _, e := range append([]Expirer{m.repo}, others...) {
		n, err := e.DeleteExpired(ctx, now)
		if err != nil {
			m.logger.Err(err).Msg("sweep failed")
			continue
		}
		if n > 0 {
			m.logger.Debug().Int("removed", n).Msgf("swept %T", e)
		}
	}
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration, others ...Expirer) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx, others...)
		}
	}
}
