package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/nutri/pkg/adapters/redis"
	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	userID := "user-ttl"

	err := store.Save(ctx, userID, &domain.Session{Step: domain.StepOnboardAge, Draft: domain.Draft{Sex: domain.SexMale}})
	require.NoError(t, err)

	users, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, users, userID)

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, userID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The index is pruned against wall-clock time.
	time.Sleep(1200 * time.Millisecond)

	users, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", domain.NewSession("u1")))

	assert.True(t, mr.Exists("custom:app:u1"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	users, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, users)
}

func TestRedisStore_ConflictAfterExternalWrite(t *testing.T) {
	_, client := newClient(t)
	ctx := context.Background()

	a := redis.NewFromClient(client)
	b := redis.NewFromClient(client)

	s := domain.NewSession("u1")
	require.NoError(t, a.Save(ctx, "u1", s))

	stale, err := a.Load(ctx, "u1")
	require.NoError(t, err)
	fresh, err := b.Load(ctx, "u1")
	require.NoError(t, err)

	fresh.Step = domain.StepAwaitAccessCode
	require.NoError(t, b.Save(ctx, "u1", fresh))

	stale.Step = domain.StepReady
	assert.ErrorIs(t, a.Save(ctx, "u1", stale), domain.ErrConflict)

	got, err := a.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.StepAwaitAccessCode, got.Step)
	assert.Equal(t, int64(2), got.Version)
}
