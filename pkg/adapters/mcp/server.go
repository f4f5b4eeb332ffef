package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/nutri"
	"github.com/aretw0/nutri/internal/logging"
	"github.com/aretw0/nutri/pkg/dispatch"
	"github.com/aretw0/nutri/pkg/domain"
)

// VocabularyURI is the resource listing every word the bot understands.
const VocabularyURI = "nutri://vocabulary"

// MessageResponse is the structured result of send_message.
type MessageResponse struct {
	Reply    string `json:"reply" jsonschema_description:"The bot's answer"`
	Step     string `json:"step" jsonschema_description:"The user's dialogue step after the message"`
	Outcome  string `json:"outcome" jsonschema_description:"How the message was handled (advanced, invalid, rejected...)"`
	Delegate string `json:"delegate,omitempty" jsonschema_description:"Remote operation invoked, if any"`
	EventID  string `json:"event_id" jsonschema_description:"Idempotency key of the message"`
}

// Dispatcher handles one inbound event.
type Dispatcher interface {
	Handle(ctx context.Context, ev dispatch.Event) (dispatch.Reply, error)
}

// Sessions reads and resets persisted sessions.
type Sessions interface {
	Load(ctx context.Context, userID string) (*domain.Session, error)
	Reset(ctx context.Context, userID string) (*domain.Session, error)
}

// Server exposes the dispatcher as MCP tools so an agent can hold a conversation
// on behalf of a user.
type Server struct {
	dispatcher Dispatcher
	sessions   Sessions
	mcpServer  *server.MCPServer
	logger     *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(d Dispatcher, sessions Sessions, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		sessions:   sessions,
		logger:     logging.NewNop(),
		mcpServer: server.NewMCPServer("nutri-mcp", strings.TrimSpace(nutri.Version),
			server.WithToolCapabilities(true),
			server.WithResourceCapabilities(false, false),
			server.WithRecovery(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on addr until ctx is canceled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{Addr: addr, Handler: mux}
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	sendTool := mcp.NewTool("send_message",
		mcp.WithDescription("Send one chat message as a user and get the bot's reply."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Stable identity of the user")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text")),
		mcp.WithString("event_id", mcp.Description("Idempotency key; reuse it to retry the same message")),
		mcp.WithOutputSchema[MessageResponse](),
	)
	s.mcpServer.AddTool(sendTool, mcp.NewStructuredToolHandler(s.handleSendMessage))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the persisted dialogue session of a user."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Stable identity of the user")),
	), s.handleGetSession)

	s.mcpServer.AddTool(mcp.NewTool("reset_session",
		mcp.WithDescription("Move a user back to the access code step, discarding onboarding progress."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Stable identity of the user")),
	), s.handleResetSession)
}

func (s *Server) handleSendMessage(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MessageResponse, error) {
	userID, _ := args["user_id"].(string)
	text, _ := args["text"].(string)
	eventID, _ := args["event_id"].(string)

	reply, err := s.dispatcher.Handle(ctx, dispatch.Event{UserID: userID, Text: text, ID: eventID})
	if err != nil {
		s.logger.Warn("MCP send_message failed", "user_id", userID, "err", err)
		return MessageResponse{}, fmt.Errorf("send_message: %w", err)
	}
	return MessageResponse{
		Reply:    reply.Text,
		Step:     string(reply.Step),
		Outcome:  string(reply.Outcome),
		Delegate: reply.Delegate,
		EventID:  reply.EventID,
	}, nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := request.GetString("user_id", "")
	sess, err := s.sessions.Load(ctx, userID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("no session for user %q", userID)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	return jsonResult(sess)
}

func (s *Server) handleResetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID := request.GetString("user_id", "")
	if strings.TrimSpace(userID) == "" {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	sess, err := s.sessions.Reset(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("reset failed: %v", err)), nil
	}
	return jsonResult(sess)
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(VocabularyURI, "Vocabulary",
		mcp.WithResourceDescription("Categories, sexes, activity tiers, goals and commands the bot accepts"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(domain.Vocabulary())
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      VocabularyURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}
