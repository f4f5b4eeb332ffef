package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/observability"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks(nil)
	ctx := context.Background()

	hooks.OnTransition(ctx, &domain.TransitionEvent{To: domain.StepOnboardAge, Outcome: "advanced"})
	hooks.OnTransition(ctx, &domain.TransitionEvent{To: domain.StepOnboardAge, Outcome: "advanced"})
	hooks.OnDelegate(ctx, &domain.DelegateEvent{Name: domain.OpLogItem, Result: "rejected", Duration: 20 * time.Millisecond})
	hooks.OnConflict(ctx, "u1")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("onboard_age", "advanced")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DelegateCalls.WithLabelValues(domain.OpLogItem, "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Conflicts))
	assert.Equal(t, 1, testutil.CollectAndCount(m.DelegateTime))
}

func TestMetrics_ObserveStore(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	m.ObserveStore("save", time.Now(), nil)
	m.ObserveStore("save", time.Now(), errors.New("boom"))

	assert.Equal(t, 2, testutil.CollectAndCount(m.StoreOps))
}
