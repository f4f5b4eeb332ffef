package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/nutri/pkg/domain"
)

const namespace = "nutri"

// Metrics holds the bot's collectors.
type Metrics struct {
	Transitions   *prometheus.CounterVec
	DelegateCalls *prometheus.CounterVec
	DelegateTime  *prometheus.HistogramVec
	Conflicts     prometheus.Counter
	StoreOps      *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transitions_total",
				Help:      "Handled messages by resulting step and outcome.",
			},
			[]string{"step", "outcome"},
		),
		DelegateCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "delegate_calls_total",
				Help:      "Remote delegate calls by operation and result.",
			},
			[]string{"delegate", "result"},
		),
		DelegateTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "delegate_duration_seconds",
				Help:      "Latency of remote delegate calls.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"delegate"},
		),
		Conflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_conflicts_total",
				Help:      "Optimistic concurrency conflicts on session saves.",
			},
		),
		StoreOps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_seconds",
				Help:      "Latency of session store operations.",
				Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op", "result"},
		),
	}
	reg.MustRegister(m.Transitions, m.DelegateCalls, m.DelegateTime, m.Conflicts, m.StoreOps)
	return m
}

// Hooks returns lifecycle hooks that record metrics and, when logger is not nil,
// log each event.
func (m *Metrics) Hooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(string(e.To), e.Outcome).Inc()
			if logger != nil {
				logger.Info("transition",
					"user_id", e.UserID,
					"from", e.From,
					"step", e.To,
					"outcome", e.Outcome,
					"attempts", e.Attempts,
				)
			}
		},
		OnDelegate: func(ctx context.Context, e *domain.DelegateEvent) {
			m.DelegateCalls.WithLabelValues(e.Name, e.Result).Inc()
			m.DelegateTime.WithLabelValues(e.Name).Observe(e.Duration.Seconds())
			if logger != nil {
				logger.Info("delegate_call",
					"user_id", e.UserID,
					"delegate", e.Name,
					"result", e.Result,
					"duration", e.Duration,
				)
			}
		},
		OnConflict: func(ctx context.Context, userID string) {
			m.Conflicts.Inc()
		},
	}
}

// ObserveStore records the latency of one store operation.
func (m *Metrics) ObserveStore(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.StoreOps.WithLabelValues(op, result).Observe(time.Since(start).Seconds())
}
