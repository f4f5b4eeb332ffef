package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/nutri/pkg/adapters/memory"
	"github.com/aretw0/nutri/pkg/domain"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 5000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("user-%d", i)
		_, _, _ = mgr.Update(ctx, id, func(_ context.Context, s *domain.Session) (*domain.Session, error) {
			s.Step = domain.StepAwaitAccessCode
			return s, nil
		})
		_ = mgr.Delete(ctx, id)
	}

	lockCount := len(mgr.locks)
	t.Logf("Users handled: %d, Locks left: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
