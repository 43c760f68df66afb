package conversation

import (
	"context"
	"time"
)

// Store holds sessions keyed by id.
type Store interface {
	// Create persists a new session. Version is set to 1.
	Create(ctx context.Context, s *Session) error

	// Get returns a copy of the session or a session_not_found error.
	Get(ctx context.Context, id string) (*Session, error)

	// Update applies fn atomically to the stored session and returns the
	// result. If fn returns an error nothing is written. Version is
	// incremented and UpdatedAt refreshed on every successful write.
	Update(ctx context.Context, id string, fn func(*Session) error) (*Session, error)

	Delete(ctx context.Context, id string) error

	// Len counts live sessions.
	Len(ctx context.Context) (int, error)

	Close() error
}

const (
	DefaultTTL        = 24 * time.Hour
	DefaultMaxEntries = 10000
)
