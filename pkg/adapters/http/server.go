package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aretw0/nutri"
	"github.com/aretw0/nutri/internal/logging"
	"github.com/aretw0/nutri/pkg/adapters/telegram"
	"github.com/aretw0/nutri/pkg/dispatch"
	"github.com/aretw0/nutri/pkg/domain"
)

// SecretHeader carries the secret Telegram echoes back on every webhook call.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// MaxBodyBytes bounds inbound request bodies.
const MaxBodyBytes = 1 << 20

// Dispatcher handles one inbound event.
type Dispatcher interface {
	Handle(ctx context.Context, ev dispatch.Event) (dispatch.Reply, error)
}

// SessionReader loads the persisted session of a user.
type SessionReader interface {
	Load(ctx context.Context, userID string) (*domain.Session, error)
}

// Server exposes the dispatcher over HTTP.
type Server struct {
	Dispatcher Dispatcher
	Sessions   SessionReader
	Streams    *StreamManager

	metrics       http.Handler
	webhookSecret string
	logger        *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithWebhookSecret rejects webhook calls that do not carry secret in SecretHeader.
func WithWebhookSecret(secret string) Option {
	return func(s *Server) {
		s.webhookSecret = secret
	}
}

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server.
func NewServer(d Dispatcher, sessions SessionReader, opts ...Option) *Server {
	s := &Server{
		Dispatcher: d,
		Sessions:   sessions,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	return s
}

// NewHandler creates the HTTP handler for a dispatcher.
func NewHandler(d Dispatcher, sessions SessionReader, opts ...Option) http.Handler {
	return NewServer(d, sessions, opts...).Routes()
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/", s.GetRoot)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Post("/telegram/webhook", s.PostWebhook)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/messages", s.PostMessage)
		r.Get("/sessions/{userID}", s.GetSession)
		r.Get("/sessions/{userID}/events", s.SubscribeEvents)
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+SecretHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetRoot handles GET /.
func (s *Server) GetRoot(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "Bot running"})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "nutri",
		"version": strings.TrimSpace(nutri.Version),
	})
}

// PostWebhook handles POST /telegram/webhook. Every well-formed update is
// acknowledged, whatever happens to it, so Telegram does not redeliver it;
// the reply goes out through the dispatcher's notifier.
func (s *Server) PostWebhook(w http.ResponseWriter, r *http.Request) {
	if s.webhookSecret != "" && r.Header.Get(SecretHeader) != s.webhookSecret {
		s.logger.Warn("Webhook: bad secret", "remote", r.RemoteAddr)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var update tgbotapi.Update
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&update); err != nil {
		s.logger.Warn("Webhook: invalid update", "err", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ev, ok := telegram.EventFromUpdate(update)
	if !ok {
		s.logger.Debug("Webhook: ignoring non-text update", "update_id", update.UpdateID)
		s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	if _, err := s.handle(r.Context(), ev); err != nil {
		s.logger.Error("Webhook: handle failed", "update_id", update.UpdateID, "err", err)
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// MessageRequest is the body of POST /v1/messages.
type MessageRequest struct {
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp,omitempty"`
	EventID   string    `json:"event_id,omitempty"`
}

// MessageResponse is the reply of POST /v1/messages.
type MessageResponse struct {
	Reply   string `json:"reply"`
	Step    string `json:"step"`
	Outcome string `json:"outcome"`
	EventID string `json:"event_id"`
}

// PostMessage handles POST /v1/messages, a synchronous channel for transports
// other than Telegram.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&body); err != nil {
		s.logger.Warn("PostMessage: invalid request body", "err", err)
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if utf8.RuneCountInString(body.Text) > telegram.MaxMessageLength {
		http.Error(w, "Text too long", http.StatusRequestEntityTooLarge)
		return
	}

	reply, err := s.handle(r.Context(), dispatch.Event{
		UserID:    body.UserID,
		Text:      body.Text,
		Timestamp: body.Timestamp,
		ID:        body.EventID,
	})
	resp := MessageResponse{
		Reply:   reply.Text,
		Step:    string(reply.Step),
		Outcome: string(reply.Outcome),
		EventID: reply.EventID,
	}
	switch {
	case errors.Is(err, dispatch.ErrNoIdentity):
		http.Error(w, "user_id is required", http.StatusBadRequest)
	case err != nil:
		s.logger.Error("PostMessage: handle failed", "user_id", body.UserID, "err", err)
		s.writeJSON(w, http.StatusServiceUnavailable, resp)
	default:
		s.writeJSON(w, http.StatusOK, resp)
	}
}

// GetSession handles GET /v1/sessions/{userID}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sess, err := s.Sessions.Load(r.Context(), userID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("GetSession failed", "user_id", userID, "err", err)
		http.Error(w, "Store unavailable", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

// handle dispatches ev and broadcasts what it persisted to the session's subscribers.
func (s *Server) handle(ctx context.Context, ev dispatch.Event) (dispatch.Reply, error) {
	reply, err := s.Dispatcher.Handle(ctx, ev)
	if err != nil {
		return reply, err
	}
	if reply.Changes != nil {
		if data, err := json.Marshal(reply.Changes); err == nil {
			s.Streams.Broadcast(reply.Changes.UserID, string(data))
		}
	}
	return reply, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
