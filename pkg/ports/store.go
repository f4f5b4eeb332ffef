package ports

import (
	"context"

	"github.com/aretw0/nutri/pkg/domain"
)

// SessionStore defines the interface for persisting per-user dialogue sessions.
// Implementations must give read-your-write consistency per user.
type SessionStore interface {
	// Load retrieves the session of a user.
	// Returns domain.ErrSessionNotFound if the user has no session yet.
	Load(ctx context.Context, userID string) (*domain.Session, error)

	// Save persists the session using optimistic concurrency on session.Version:
	// Version 0 creates the record and fails if one already exists, any other
	// Version must match the stored one. A mismatch returns domain.ErrConflict.
	// On success the store bumps session.Version to the persisted value.
	Save(ctx context.Context, userID string, session *domain.Session) error

	// Delete removes the session of a user. Deleting a missing session is not an error.
	Delete(ctx context.Context, userID string) error

	// List returns the ids of all users with a session.
	List(ctx context.Context) ([]string, error)
}
