package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/ports"
)

// Observer receives the latency and outcome of each store operation.
// observability.Metrics.ObserveStore satisfies it.
type Observer func(op string, start time.Time, err error)

type instrumented struct {
	next    ports.SessionStore
	observe Observer
	logger  *slog.Logger
}

// NewInstrumented reports every operation to observe and logs unexpected failures.
// Not-found loads and version conflicts are expected and only reach observe.
func NewInstrumented(observe Observer, logger *slog.Logger) Middleware {
	return func(next ports.SessionStore) ports.SessionStore {
		return &instrumented{next: next, observe: observe, logger: logger}
	}
}

func (m *instrumented) done(op, userID string, start time.Time, err error) {
	if m.observe != nil {
		m.observe(op, start, err)
	}
	if err == nil || m.logger == nil ||
		errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrConflict) {
		return
	}
	m.logger.Error("Session store failure", "op", op, "user_id", userID, "err", err)
}

func (m *instrumented) Save(ctx context.Context, userID string, s *domain.Session) error {
	start := time.Now()
	err := m.next.Save(ctx, userID, s)
	m.done("save", userID, start, err)
	return err
}

func (m *instrumented) Load(ctx context.Context, userID string) (*domain.Session, error) {
	start := time.Now()
	s, err := m.next.Load(ctx, userID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		m.done("load", userID, start, nil)
		return s, err
	}
	m.done("load", userID, start, err)
	return s, err
}

func (m *instrumented) Delete(ctx context.Context, userID string) error {
	start := time.Now()
	err := m.next.Delete(ctx, userID)
	m.done("delete", userID, start, err)
	return err
}

func (m *instrumented) List(ctx context.Context) ([]string, error) {
	start := time.Now()
	ids, err := m.next.List(ctx)
	m.done("list", "", start, err)
	return ids, err
}
