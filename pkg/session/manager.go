package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/nutri/internal/logging"
	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/ports"
)

// DefaultMaxAttempts bounds the optimistic read-modify-write loop of Update.
const DefaultMaxAttempts = 3

// DefaultLockTTL is the lease of the distributed lock taken around one update.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// UpdateFunc computes the next session from the current one. The current session
// is a private copy. Returning nil, or a session equal to current, skips the save.
type UpdateFunc func(ctx context.Context, current *domain.Session) (*domain.Session, error)

// Manager orchestrates session access, ensuring that one user's messages are
// handled one at a time. Within a replica it serializes on a ref-counted mutex;
// across replicas it relies on the optional DistributedLocker and, as the last
// line, on the store's version check.
type Manager struct {
	store ports.SessionStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker      ports.DistributedLocker // Optional distributed locker
	lockTTL     time.Duration
	maxAttempts int
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the lease of the distributed lock.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithMaxAttempts sets how many times Update runs before giving up on conflicts.
func WithMaxAttempts(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxAttempts = n
		}
	}
}

// WithLifecycleHooks registers the OnConflict hook.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Manager) {
		m.hooks = hooks
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a new Session Manager with the given persistence store.
func NewManager(store ports.SessionStore, opts ...Option) *Manager {
	m := &Manager{
		store:       store,
		locks:       make(map[string]*lockEntry),
		lockTTL:     DefaultLockTTL,
		maxAttempts: DefaultMaxAttempts,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(userID) after unlocking.
func (m *Manager) acquire(userID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		entry = &lockEntry{}
		m.locks[userID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[userID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, userID)
	}
}

// Load retrieves an existing session from the store.
func (m *Manager) Load(ctx context.Context, userID string) (*domain.Session, error) {
	var s *domain.Session
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		var err error
		s, err = m.store.Load(ctx, userID)
		return err
	})
	return s, err
}

// LoadOrNew returns the stored session, or an unsaved fresh one (Version 0) when
// the user has none. Sessions are only created by the first Update that changes them.
func (m *Manager) LoadOrNew(ctx context.Context, userID string) (*domain.Session, error) {
	s, err := m.store.Load(ctx, userID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return domain.NewSession(userID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return s, nil
}

// Update runs a read-modify-write cycle for one user under the user's lock.
// When the save loses a version race (another replica without a shared locker
// got there first) the cycle is re-run on the fresh session, up to the
// configured number of attempts. It returns the persisted session, or the
// loaded one when fn changed nothing, and the number of attempts made.
func (m *Manager) Update(ctx context.Context, userID string, fn UpdateFunc) (*domain.Session, int, error) {
	var (
		result   *domain.Session
		attempts int
	)
	err := m.WithLock(ctx, userID, func(ctx context.Context) error {
		for attempts < m.maxAttempts {
			attempts++

			current, err := m.LoadOrNew(ctx, userID)
			if err != nil {
				return err
			}

			next, err := fn(ctx, current.Snapshot())
			if err != nil {
				return err
			}
			if next == nil || next.SameState(current) {
				result = current
				return nil
			}

			next = next.Snapshot()
			next.UserID = userID
			next.Version = current.Version

			err = m.store.Save(ctx, userID, next)
			if err == nil {
				result = next
				return nil
			}
			if !errors.Is(err, domain.ErrConflict) {
				return fmt.Errorf("failed to save session: %w", err)
			}

			m.logger.Warn("Session version conflict, retrying",
				"user_id", userID,
				"attempt", attempts,
				"version", current.Version,
			)
			if m.hooks.OnConflict != nil {
				m.hooks.OnConflict(ctx, userID)
			}
		}
		return fmt.Errorf("gave up after %d attempts: %w", attempts, domain.ErrConflict)
	})
	return result, attempts, err
}

// Save persists the session as given, under the user's lock.
func (m *Manager) Save(ctx context.Context, userID string, s *domain.Session) error {
	return m.WithLock(ctx, userID, func(ctx context.Context) error {
		return m.store.Save(ctx, userID, s)
	})
}

// Reset moves a user back to the access code step, keeping the record.
func (m *Manager) Reset(ctx context.Context, userID string) (*domain.Session, error) {
	s, _, err := m.Update(ctx, userID, func(_ context.Context, current *domain.Session) (*domain.Session, error) {
		current.Reset()
		return current, nil
	})
	return s, err
}

// Delete removes the session from the store.
func (m *Manager) Delete(ctx context.Context, userID string) error {
	return m.WithLock(ctx, userID, func(ctx context.Context) error {
		return m.store.Delete(ctx, userID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying session store.
func (m *Manager) Store() ports.SessionStore {
	return m.store
}

// WithLock executes a function while holding the lock for the user.
func (m *Manager) WithLock(ctx context.Context, userID string, fn func(context.Context) error) error {
	entry := m.acquire(userID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(userID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, userID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"user_id", userID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
