package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/nutri/internal/logging"
	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/machine"
	"github.com/aretw0/nutri/pkg/parser"
	"github.com/aretw0/nutri/pkg/ports"
	"github.com/aretw0/nutri/pkg/session"
)

// MsgUnavailable is sent when the session could not be loaded or saved.
const MsgUnavailable = "Tuve un problema guardando tu progreso. Inténtalo de nuevo en unos minutos."

// MsgInputRejected is sent for messages that are too long or not valid text.
const MsgInputRejected = "No pude leer ese mensaje. Envía un texto más corto."

// OutcomeFailed marks a cycle aborted by a store failure.
const OutcomeFailed machine.Outcome = "failed"

// ErrNoIdentity is returned for events without a user id.
var ErrNoIdentity = errors.New("event has no user id")

// Event is one inbound text message.
type Event struct {
	UserID    string
	Text      string
	Timestamp time.Time
	// ID identifies the event across transport retries. Generated when empty.
	ID string
}

// Reply is the outcome of a handled event.
type Reply struct {
	EventID  string
	Text     string
	Step     domain.Step
	Outcome  machine.Outcome
	Delegate string
	Attempts int
	Session  *domain.Session
	// Changes is what this event persisted, nil when the session was not rewritten.
	Changes *domain.SessionDiff
}

// Dispatcher routes events through the session Manager and the Machine.
type Dispatcher struct {
	sessions *session.Manager
	machine  *machine.Machine
	notifier ports.Notifier
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	newID    func() string
	maxInput int
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

// WithNotifier sends every reply through n in addition to returning it.
func WithNotifier(n ports.Notifier) Option {
	return func(d *Dispatcher) {
		d.notifier = n
	}
}

// WithLifecycleHooks registers the OnTransition hook.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(d *Dispatcher) {
		d.hooks = hooks
	}
}

// WithLogger configures a logger for the Dispatcher.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithIDGenerator overrides how event ids are generated.
func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) {
		d.newID = fn
	}
}

// WithMaxInputSize bounds the size of an inbound message, in bytes.
func WithMaxInputSize(n int) Option {
	return func(d *Dispatcher) {
		d.maxInput = n
	}
}

// New creates a Dispatcher.
func New(sessions *session.Manager, m *machine.Machine, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sessions: sessions,
		machine:  m,
		logger:   logging.NewNop(),
		newID:    uuid.NewString,
		maxInput: parser.DefaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle processes one event end to end: it serializes on the user, applies the
// transition, persists the result and delivers the reply. A store failure leaves
// the persisted session untouched, replies MsgUnavailable and returns the error.
func (d *Dispatcher) Handle(ctx context.Context, ev Event) (Reply, error) {
	ev.UserID = strings.TrimSpace(ev.UserID)
	if ev.UserID == "" {
		return Reply{}, ErrNoIdentity
	}
	if ev.ID == "" {
		ev.ID = d.newID()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	text, err := parser.Sanitize(ev.Text, d.maxInput)
	if err != nil {
		return d.reject(ctx, ev, err), nil
	}
	ev.Text = text

	var (
		loaded *domain.Session
		res    machine.Result
	)
	next, attempts, err := d.sessions.Update(ctx, ev.UserID, func(ctx context.Context, current *domain.Session) (*domain.Session, error) {
		loaded = current.Snapshot()
		res = d.machine.Apply(ctx, current, machine.Message{Text: ev.Text, ID: ev.ID})
		return res.Session, nil
	})

	if err != nil {
		d.logger.Error("Failed to handle message",
			"user_id", ev.UserID,
			"event_id", ev.ID,
			"attempts", attempts,
			"err", err,
		)
		reply := Reply{EventID: ev.ID, Text: MsgUnavailable, Outcome: OutcomeFailed, Attempts: attempts}
		if loaded != nil {
			reply.Step = loaded.Step
		}
		d.notify(ctx, ev.UserID, reply.Text)
		return reply, fmt.Errorf("handle event %s: %w", ev.ID, err)
	}

	d.logger.Debug("Message handled",
		"user_id", ev.UserID,
		"event_id", ev.ID,
		"step", next.Step,
		"outcome", res.Outcome,
		"delegate", res.Delegate,
	)

	if d.hooks.OnTransition != nil {
		d.hooks.OnTransition(ctx, &domain.TransitionEvent{
			EventBase: domain.EventBase{Timestamp: ev.Timestamp, Type: domain.EventTransition, UserID: ev.UserID},
			From:      loaded.Step,
			To:        next.Step,
			Outcome:   string(res.Outcome),
			Attempts:  attempts,
		})
	}

	d.notify(ctx, ev.UserID, res.Reply)

	return Reply{
		EventID:  ev.ID,
		Text:     res.Reply,
		Step:     next.Step,
		Outcome:  res.Outcome,
		Delegate: res.Delegate,
		Attempts: attempts,
		Session:  next,
		Changes:  domain.Diff(loaded, next),
	}, nil
}

// reject answers unreadable input without touching the session.
func (d *Dispatcher) reject(ctx context.Context, ev Event, cause error) Reply {
	d.logger.Warn("Message rejected", "user_id", ev.UserID, "event_id", ev.ID, "size", len(ev.Text), "err", cause)
	reply := Reply{EventID: ev.ID, Text: MsgInputRejected, Outcome: machine.OutcomeInvalid}
	if s, err := d.sessions.LoadOrNew(ctx, ev.UserID); err == nil {
		reply.Step = s.Step
		reply.Session = s
	}
	d.notify(ctx, ev.UserID, reply.Text)
	return reply
}

// Sessions exposes the session Manager for operator tooling.
func (d *Dispatcher) Sessions() *session.Manager {
	return d.sessions
}

func (d *Dispatcher) notify(ctx context.Context, userID, text string) {
	if d.notifier == nil || text == "" {
		return
	}
	if err := d.notifier.Send(ctx, userID, text); err != nil {
		d.logger.Warn("Failed to deliver reply", "user_id", userID, "err", err)
	}
}
