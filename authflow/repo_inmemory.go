package authflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-okta-login/internal/errors"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu     sync.Mutex
	states map[string]*State
	now    func() time.Time
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory auth flow state repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states: make(map[string]*State),
		now:    time.Now,
	}
}

// Save stores a copy of st
func (r *InMemoryRepo) Save(_ context.Context, st *State) error {
	if st == nil {
		return errors.New("state cannot be nil")
	}
	if st.ID == "" {
		return errors.New("state id cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.states[st.ID]; exists {
		return fmt.Errorf("state %q already pending", st.ID)
	}
	r.states[st.ID] = st.clone()
	return nil
}

// Consume looks up and deletes id under a single lock
func (r *InMemoryRepo) Consume(_ context.Context, id string) (*State, error) {
	if id == "" {
		return nil, fmt.Errorf("empty state: %w", apperrors.ErrInvalidState)
	}

	r.mu.Lock()
	st, ok := r.states[id]
	if ok {
		delete(r.states, id)
	}
	r.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("state not pending: %w", apperrors.ErrInvalidState)
	}
	if st.IsExpired(r.now()) {
		return nil, fmt.Errorf("state expired at %s: %w", st.ExpiresAt.Format(time.RFC3339), apperrors.ErrInvalidState)
	}
	return st, nil
}

// DeleteExpired removes states whose expiry has passed
func (r *InMemoryRepo) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, st := range r.states {
		if st.IsExpired(now) {
			delete(r.states, id)
			removed++
		}
	}
	return removed, nil
}

// Len reports the number of pending states.
func (r *InMemoryRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}
