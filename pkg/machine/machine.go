package machine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/nutri/internal/logging"
	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/parser"
	"github.com/aretw0/nutri/pkg/ports"
)

// Outcome classifies how a message was handled.
type Outcome string

const (
	// OutcomeAdvanced means the session changed.
	OutcomeAdvanced Outcome = "advanced"
	// OutcomeUnchanged means the message was handled without touching the session.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeInvalid means local validation or parsing failed.
	OutcomeInvalid Outcome = "invalid"
	// OutcomeRejected means a delegate refused the request (bad code, unknown item).
	OutcomeRejected Outcome = "rejected"
	// OutcomeUnavailable means a delegate failed at the transport level.
	OutcomeUnavailable Outcome = "unavailable"
	// OutcomeCommand means a global command was handled.
	OutcomeCommand Outcome = "command"
)

// Message is one inbound line of text.
type Message struct {
	Text string
	// ID identifies the inbound event. It is stable across retries of the same
	// event and is forwarded to delegates as the idempotency key.
	ID string
}

// Result is the outcome of a single transition.
type Result struct {
	// Session is the next session. It is a fresh copy; the input is never mutated.
	Session *domain.Session
	// Reply is the outbound text, empty when nothing must be sent.
	Reply   string
	Outcome Outcome
	// Delegate names the remote operation invoked, if any.
	Delegate string
	// Err carries the delegate failure behind OutcomeRejected/OutcomeUnavailable.
	Err error
}

// Machine is the conversation state machine. It holds no per-user state: every
// call is a function of the session, the text and the delegate answers.
type Machine struct {
	gateway ports.Gateway
	now     func() time.Time
	loc     *time.Location
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
}

// Option configures the Machine.
type Option func(*Machine)

// WithClock overrides the time source used to compute the log day.
func WithClock(now func() time.Time) Option {
	return func(m *Machine) {
		m.now = now
	}
}

// WithLocation sets the time zone that defines the user's calendar day.
func WithLocation(loc *time.Location) Option {
	return func(m *Machine) {
		if loc != nil {
			m.loc = loc
		}
	}
}

// WithLifecycleHooks registers observability hooks for delegate calls.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(m *Machine) {
		m.hooks = hooks
	}
}

// WithLogger configures a logger for the Machine.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// New creates a Machine that delegates business operations to gateway.
func New(gateway ports.Gateway, opts ...Option) *Machine {
	m := &Machine{
		gateway: gateway,
		now:     time.Now,
		loc:     time.UTC,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Transition computes the next session for a line of text.
func (m *Machine) Transition(ctx context.Context, current *domain.Session, text string) Result {
	return m.Apply(ctx, current, Message{Text: text})
}

// Apply computes the next session for an inbound message.
func (m *Machine) Apply(ctx context.Context, current *domain.Session, msg Message) Result {
	if current == nil {
		current = domain.NewSession("")
	}
	s := m.repair(current.Snapshot())
	text := strings.TrimSpace(msg.Text)

	// Global commands win over step logic.
	if cmd, ok := domain.ParseCommand(parser.NormalizeCommand(text)); ok {
		return m.command(ctx, s, cmd)
	}

	switch {
	case s.Step == domain.StepFresh:
		s.Step = s.Step.Next()
		return advanced(s, msgWelcome)
	case s.Step == domain.StepAwaitAccessCode:
		return m.activate(ctx, s, text, msg.ID)
	case s.Step.IsOnboarding():
		return m.onboard(ctx, s, text, msg.ID)
	default:
		return m.steady(ctx, s, text, msg.ID)
	}
}

// repair brings a session that violates the model invariants back to a safe step.
func (m *Machine) repair(s *domain.Session) *domain.Session {
	switch {
	case !s.Step.Valid():
		m.logger.Warn("Unknown step, restarting dialogue", "user_id", s.UserID, "step", s.Step)
		s.Step = domain.StepFresh
		s.Draft = domain.Draft{}
		s.Category = domain.CategoryNone
	case s.Step == domain.StepCategorySelected && s.Category == domain.CategoryNone:
		s.Step = domain.StepReady
	case !s.Draft.ConsistentWith(s.Step):
		m.logger.Warn("Draft inconsistent with step", "user_id", s.UserID, "step", s.Step, "fields", s.Draft.Fields())
		if s.Step.IsOnboarding() {
			s.Step = domain.StepOnboardSex
		}
		s.Draft = domain.Draft{}
	}
	return s
}

func (m *Machine) command(ctx context.Context, s *domain.Session, cmd domain.Command) Result {
	switch cmd {
	case domain.CommandReset:
		s.Reset()
		return Result{Session: s, Reply: msgReset, Outcome: OutcomeCommand}
	case domain.CommandStart:
		if s.Step == domain.StepFresh {
			s.Step = s.Step.Next()
			return Result{Session: s, Reply: msgWelcome, Outcome: OutcomeCommand}
		}
		return Result{Session: s, Reply: promptFor(s), Outcome: OutcomeCommand}
	case domain.CommandStatus:
		return m.status(ctx, s)
	}
	return Result{Session: s, Reply: msgHelp, Outcome: OutcomeCommand}
}

func (m *Machine) status(ctx context.Context, s *domain.Session) Result {
	if !s.Step.IsSteady() {
		return Result{Session: s, Reply: onboardingStatus(s), Outcome: OutcomeCommand}
	}

	start := time.Now()
	sum, err := m.gateway.Summary(ctx, s.UserID, m.day())
	m.delegated(ctx, s.UserID, domain.OpDaySummary, start, err)

	if err != nil {
		return m.failed(s, domain.OpDaySummary, err, msgNoProfile, msgTryAgain)
	}
	return Result{Session: s, Reply: summary(sum), Outcome: OutcomeCommand, Delegate: domain.OpDaySummary}
}

func (m *Machine) activate(ctx context.Context, s *domain.Session, code, eventID string) Result {
	if code == "" {
		return invalid(s, msgAskCode)
	}

	start := time.Now()
	err := m.gateway.ActivateAccount(ctx, s.UserID, code, eventID)
	m.delegated(ctx, s.UserID, domain.OpActivateAccount, start, err)
	if err != nil {
		return m.failed(s, domain.OpActivateAccount, err, msgCodeRejected, msgTryAgain)
	}

	s.Step = s.Step.Next()
	s.Draft = domain.Draft{}
	res := advanced(s, msgActivated+"\n"+prompts[s.Step])
	res.Delegate = domain.OpActivateAccount
	return res
}

func (m *Machine) onboard(ctx context.Context, s *domain.Session, text, eventID string) Result {
	draft := s.Draft
	if problem := validators[s.Step](text, &draft); problem != "" {
		return invalid(s, problem)
	}

	if s.Step != domain.StepOnboardGoal {
		s.Draft = draft
		s.Step = s.Step.Next()
		return advanced(s, prompts[s.Step])
	}

	start := time.Now()
	targets, err := m.gateway.FinalizeProfile(ctx, s.UserID, draft.Profile(), eventID)
	m.delegated(ctx, s.UserID, domain.OpFinalizeProfile, start, err)
	if err != nil {
		// The goal is not committed: resubmitting it retries the whole finalize.
		retry := msgTryAgain + "\n" + prompts[s.Step]
		return m.failed(s, domain.OpFinalizeProfile, err, retry, retry)
	}

	s.Draft = domain.Draft{}
	s.Step = s.Step.Next()
	s.Category = domain.CategoryNone
	res := advanced(s, profileReady(targets))
	res.Delegate = domain.OpFinalizeProfile
	return res
}

func (m *Machine) steady(ctx context.Context, s *domain.Session, text, eventID string) Result {
	if c, ok := domain.ParseCategory(parser.Normalize(text)); ok {
		if s.Step == domain.StepCategorySelected && s.Category == c {
			return Result{Session: s, Reply: categorySelected(c), Outcome: OutcomeUnchanged}
		}
		s.Step = domain.StepCategorySelected
		s.Category = c
		return advanced(s, categorySelected(c))
	}

	item, ok := parser.ParseItemLine(text)
	if !ok {
		return invalid(s, msgItemFormat)
	}
	if s.Category == domain.CategoryNone {
		return invalid(s, msgChooseFirst)
	}

	entry := domain.ItemEntry{
		UserID:         s.UserID,
		Category:       s.Category,
		Name:           item.Name,
		Quantity:       item.Quantity,
		Day:            m.day(),
		IdempotencyKey: eventID,
	}

	start := time.Now()
	res, err := m.gateway.LogItem(ctx, entry)
	m.delegated(ctx, s.UserID, domain.OpLogItem, start, err)
	if err != nil {
		return m.failed(s, domain.OpLogItem, err, itemNotFound(item.Name), msgTryAgain)
	}

	return Result{
		Session:  s,
		Reply:    itemLogged(s.Category, item, res),
		Outcome:  OutcomeUnchanged,
		Delegate: domain.OpLogItem,
	}
}

// failed maps a delegate error to a reply. Domain rejections get rejected,
// anything else is treated as a transport failure and gets unavailable.
// The session is returned as it was before the call.
func (m *Machine) failed(s *domain.Session, op string, err error, rejected, unavailable string) Result {
	res := Result{Session: s, Delegate: op, Err: err}
	if isRejection(err) {
		res.Outcome = OutcomeRejected
		res.Reply = rejected
		return res
	}
	m.logger.Warn("Delegate unavailable", "user_id", s.UserID, "delegate", op, "err", err)
	res.Outcome = OutcomeUnavailable
	res.Reply = unavailable
	return res
}

func isRejection(err error) bool {
	return errors.Is(err, domain.ErrInvalidCode) ||
		errors.Is(err, domain.ErrItemNotFound) ||
		errors.Is(err, domain.ErrProfileMissing)
}

func (m *Machine) delegated(ctx context.Context, userID, op string, start time.Time, err error) {
	if m.hooks.OnDelegate == nil {
		return
	}
	result := "ok"
	switch {
	case err == nil:
	case isRejection(err):
		result = "rejected"
	default:
		result = "error"
	}
	m.hooks.OnDelegate(ctx, &domain.DelegateEvent{
		EventBase: domain.EventBase{Timestamp: start, Type: domain.EventDelegateCall, UserID: userID},
		Name:      op,
		Result:    result,
		Duration:  time.Since(start),
	})
}

func (m *Machine) day() string {
	return m.now().In(m.loc).Format("2006-01-02")
}

func advanced(s *domain.Session, reply string) Result {
	return Result{Session: s, Reply: reply, Outcome: OutcomeAdvanced}
}

func invalid(s *domain.Session, reply string) Result {
	return Result{Session: s, Reply: reply, Outcome: OutcomeInvalid}
}
