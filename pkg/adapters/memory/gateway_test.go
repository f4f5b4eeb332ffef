package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nutri/pkg/adapters/memory"
	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/ports"
)

var _ ports.Gateway = (*memory.Gateway)(nil)

func TestGateway_SingleUseCodes(t *testing.T) {
	gw := memory.NewGateway(memory.WithCodes("ONCE"), memory.WithSingleUseCodes())
	ctx := context.Background()

	require.NoError(t, gw.ActivateAccount(ctx, "u1", "ONCE", "ev-1"))
	// Same event replayed: same answer.
	require.NoError(t, gw.ActivateAccount(ctx, "u1", "ONCE", "ev-1"))
	// A new event cannot reuse the code.
	assert.ErrorIs(t, gw.ActivateAccount(ctx, "u2", "ONCE", "ev-2"), domain.ErrInvalidCode)
	assert.ErrorIs(t, gw.ActivateAccount(ctx, "u2", "ONCE", ""), domain.ErrInvalidCode)
}

func TestGateway_ReusableCodesByDefault(t *testing.T) {
	gw := memory.NewGateway(memory.WithCodes("DEMO"))
	ctx := context.Background()

	require.NoError(t, gw.ActivateAccount(ctx, "u1", "DEMO", "ev-1"))
	require.NoError(t, gw.ActivateAccount(ctx, "u2", "DEMO", "ev-2"))

	calls := gw.CallsTo(domain.OpActivateAccount)
	require.Len(t, calls, 2)
	assert.Equal(t, "ev-2", calls[1].Key)
}

func TestGateway_FinalizeProfileRecordsKey(t *testing.T) {
	gw := memory.NewGateway()
	profile := domain.Profile{
		Sex: domain.SexFemale, Age: 30, HeightCm: 165, WeightKg: 60,
		Activity: domain.ActivityLight, ActivityFactor: 1.375, Goal: domain.GoalMaintenance,
	}

	targets, err := gw.FinalizeProfile(context.Background(), "u1", profile, "ev-9")
	require.NoError(t, err)
	assert.Positive(t, targets.Kcal)

	calls := gw.CallsTo(domain.OpFinalizeProfile)
	require.Len(t, calls, 1)
	assert.Equal(t, "ev-9", calls[0].Key)
	assert.Equal(t, profile, calls[0].Profile)
}
