package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/aretw0/nutri/internal/logging"
	"github.com/aretw0/nutri/pkg/adapters/memory"
	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/persistence/middleware"
	"github.com/aretw0/nutri/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observed struct {
	op  string
	err error
}

func TestInstrumented_Contract(t *testing.T) {
	store := middleware.Chain(memory.NewStore(), middleware.NewInstrumented(nil, nil))
	ports.RunSessionStoreContract(t, store)
}

func TestInstrumented_Observes(t *testing.T) {
	var got []observed
	var logs bytes.Buffer
	observe := func(op string, start time.Time, err error) {
		got = append(got, observed{op, err})
	}
	store := middleware.Chain(memory.NewStore(),
		middleware.NewInstrumented(observe, logging.NewJSON(&logs, slog.LevelInfo)))
	ctx := context.Background()

	_, err := store.Load(ctx, "u1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	require.NoError(t, store.Save(ctx, "u1", domain.NewSession("u1")))
	assert.ErrorIs(t, store.Save(ctx, "u1", domain.NewSession("u1")), domain.ErrConflict)

	require.Len(t, got, 3)
	assert.Equal(t, observed{"load", nil}, got[0], "not found is a normal outcome")
	assert.Equal(t, observed{"save", nil}, got[1])
	assert.Equal(t, "save", got[2].op)
	assert.ErrorIs(t, got[2].err, domain.ErrConflict)
	assert.Empty(t, logs.String(), "expected outcomes are not logged")
}

type failingStore struct{ ports.SessionStore }

func (failingStore) List(context.Context) ([]string, error) {
	return nil, errors.New("connection reset")
}

func TestInstrumented_LogsFailures(t *testing.T) {
	var logs bytes.Buffer
	store := middleware.Chain(failingStore{memory.NewStore()},
		middleware.NewInstrumented(nil, logging.NewJSON(&logs, slog.LevelInfo)))

	_, err := store.List(context.Background())
	require.Error(t, err)
	assert.Contains(t, logs.String(), `"op":"list"`)
	assert.Contains(t, logs.String(), "connection reset")
}

func TestChain_Order(t *testing.T) {
	var order []string
	tag := func(name string) middleware.Middleware {
		return func(next ports.SessionStore) ports.SessionStore {
			return middleware.Chain(next, middleware.NewInstrumented(func(string, time.Time, error) {
				order = append(order, name)
			}, nil))
		}
	}
	store := middleware.Chain(memory.NewStore(), tag("outer"), tag("inner"))
	_, _ = store.List(context.Background())
	assert.Equal(t, []string{"inner", "outer"}, order, "inner returns first")
}
