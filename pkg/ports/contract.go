package ports

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/nutri/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore implementation
// adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	userID := "contract-user-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		id := userID + "-save"
		s := domain.NewSession(id)
		s.Step = domain.StepOnboardHeight
		s.Draft = domain.Draft{Sex: domain.SexFemale, Age: 28}

		// Create on first write
		require.NoError(t, store.Save(ctx, id, s), "Save should not return error")
		assert.Equal(t, int64(1), s.Version, "Save bumps the version")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, id, loaded.UserID)
		assert.Equal(t, domain.StepOnboardHeight, loaded.Step)
		assert.Equal(t, s.Draft, loaded.Draft)
		assert.Equal(t, int64(1), loaded.Version)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+userID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Isolation", func(t *testing.T) {
		id := userID + "-iso"
		s := domain.NewSession(id)
		require.NoError(t, store.Save(ctx, id, s))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		loaded.Step = domain.StepReady

		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StepFresh, again.Step, "mutating a loaded session must not touch the store")
	})

	t.Run("Update With Matching Version", func(t *testing.T) {
		id := userID + "-update"
		s := domain.NewSession(id)
		require.NoError(t, store.Save(ctx, id, s))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		loaded.Step = domain.StepAwaitAccessCode
		require.NoError(t, store.Save(ctx, id, loaded))
		assert.Equal(t, int64(2), loaded.Version)

		again, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StepAwaitAccessCode, again.Step)
		assert.Equal(t, int64(2), again.Version)
	})

	t.Run("Stale Version Conflicts", func(t *testing.T) {
		id := userID + "-stale"
		require.NoError(t, store.Save(ctx, id, domain.NewSession(id)))

		a, err := store.Load(ctx, id)
		require.NoError(t, err)
		b, err := store.Load(ctx, id)
		require.NoError(t, err)

		a.Step = domain.StepAwaitAccessCode
		require.NoError(t, store.Save(ctx, id, a))

		b.Step = domain.StepReady
		err = store.Save(ctx, id, b)
		assert.ErrorIs(t, err, domain.ErrConflict)

		winner, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StepAwaitAccessCode, winner.Step, "the loser must not overwrite the winner")
	})

	t.Run("Double Create Conflicts", func(t *testing.T) {
		id := userID + "-create"
		require.NoError(t, store.Save(ctx, id, domain.NewSession(id)))
		err := store.Save(ctx, id, domain.NewSession(id))
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("Concurrent Writers From Same Version", func(t *testing.T) {
		id := userID + "-race"
		require.NoError(t, store.Save(ctx, id, domain.NewSession(id)))

		const writers = 8
		var wg sync.WaitGroup
		errs := make([]error, writers)
		for i := 0; i < writers; i++ {
			loaded, err := store.Load(ctx, id)
			require.NoError(t, err)
			wg.Add(1)
			go func(i int, s *domain.Session) {
				defer wg.Done()
				s.Step = domain.StepAwaitAccessCode
				errs[i] = store.Save(ctx, id, s)
			}(i, loaded)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.ErrorIs(t, err, domain.ErrConflict)
		}
		assert.Equal(t, 1, wins, "exactly one writer wins")
	})

	t.Run("Delete", func(t *testing.T) {
		id := userID + "-delete"
		require.NoError(t, store.Save(ctx, id, domain.NewSession(id)))

		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		// Recreate from scratch after delete
		require.NoError(t, store.Save(ctx, id, domain.NewSession(id)))
		require.NoError(t, store.Delete(ctx, id))
		require.NoError(t, store.Delete(ctx, id), "Deleting twice is not an error")
	})

	t.Run("List", func(t *testing.T) {
		id1 := userID + "-1"
		id2 := userID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewSession(id1)))
		require.NoError(t, store.Save(ctx, id2, domain.NewSession(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		users, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, users, id1)
		assert.Contains(t, users, id2)
	})
}
