package sessions

import (
	"context"
	"time"
)

// Repo is the identity store: session id -> profile with expiry.
// Implementations must be safe for concurrent use.
type Repo interface {
	// Put stores or replaces a session
	Put(ctx context.Context, session *Session) error

	// Get returns ErrSessionNotFound when id is unknown. Expiry is checked
	// by the Manager, not here.
	Get(ctx context.Context, id string) (*Session, error)

	// Delete removes a session; deleting an unknown id is not an error
	Delete(ctx context.Context, id string) error

	// DeleteExpired removes sessions that expired at or before now
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
