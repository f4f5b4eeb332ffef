package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransition   EventType = "transition"
	EventDelegateCall EventType = "delegate_call"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id"`
}

// TransitionEvent is emitted once per handled message, after the session is persisted.
type TransitionEvent struct {
	EventBase
	From     Step   `json:"from"`
	To       Step   `json:"to"`
	Outcome  string `json:"outcome"`
	Attempts int    `json:"attempts"`
}

// DelegateEvent is emitted after each remote delegate call.
type DelegateEvent struct {
	EventBase
	Name     string        `json:"name"`
	Result   string        `json:"result"`
	Duration time.Duration `json:"duration"`
}

// LifecycleHooks defines callbacks for dispatcher observability.
type LifecycleHooks struct {
	OnTransition func(context.Context, *TransitionEvent)
	OnDelegate   func(context.Context, *DelegateEvent)
	OnConflict   func(context.Context, string)
}
