package authflow

import (
	"context"
	"time"
)

// Repo stores pending login attempts. Implementations must be safe for
// concurrent use and Consume must be atomic: for a given state token at most
// one caller ever receives the State.
type Repo interface {
	// Save stores st until st.ExpiresAt.
	Save(ctx context.Context, st *State) error

	// Consume removes and returns the State for id. Unknown, already consumed
	// and expired tokens all return ErrInvalidState.
	Consume(ctx context.Context, id string) (*State, error)

	// DeleteExpired removes states that expired at or before now and reports
	// how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
