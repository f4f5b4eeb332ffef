package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/nutri/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.Session
	mu   sync.RWMutex
	now  func() time.Time
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.Session),
		now:  time.Now,
	}
}

// Save persists the session in memory with a version check.
func (s *Store) Save(ctx context.Context, userID string, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.data[userID]
	switch {
	case !exists && session.Version != 0:
		return domain.ErrConflict
	case exists && current.Version != session.Version:
		return domain.ErrConflict
	}

	// Values are stored by copy so callers can't mutate store state through their pointer.
	stored := *session
	stored.UserID = userID
	stored.Version = session.Version + 1
	stored.UpdatedAt = s.now().UTC()
	s.data[userID] = stored

	session.Version = stored.Version
	session.UpdatedAt = stored.UpdatedAt
	return nil
}

// Load retrieves a copy of the session from memory.
func (s *Store) Load(ctx context.Context, userID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.data[userID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

// Delete removes the session.
func (s *Store) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, userID)
	return nil
}

// List returns the users with a session.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]string, 0, len(s.data))
	for id := range s.data {
		users = append(users, id)
	}
	return users, nil
}
