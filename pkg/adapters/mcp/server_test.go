package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/nutri/pkg/adapters/memory"
	"github.com/aretw0/nutri/pkg/dispatch"
	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/machine"
	"github.com/aretw0/nutri/pkg/session"
)

func newTestServer() *Server {
	gw := memory.NewGateway(memory.WithCodes("ABC123"), memory.WithCatalog(memory.DefaultCatalog))
	sessions := session.NewManager(memory.NewStore())
	d := dispatch.New(sessions, machine.New(gw))
	return NewServer(d, sessions)
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestSendMessage(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	resp, err := s.handleSendMessage(ctx, callRequest(nil), map[string]interface{}{"user_id": "agent-1", "text": "hola"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StepAwaitAccessCode), resp.Step)
	assert.Equal(t, string(machine.OutcomeAdvanced), resp.Outcome)
	assert.NotEmpty(t, resp.EventID)

	resp, err = s.handleSendMessage(ctx, callRequest(nil), map[string]interface{}{"user_id": "agent-1", "text": "ABC123", "event_id": "ev-7"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.StepOnboardSex), resp.Step)
	assert.Equal(t, domain.OpActivateAccount, resp.Delegate)
	assert.Equal(t, "ev-7", resp.EventID)

	_, err = s.handleSendMessage(ctx, callRequest(nil), map[string]interface{}{"text": "hola"})
	assert.ErrorIs(t, err, dispatch.ErrNoIdentity)
}

func TestGetAndResetSession(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	res, err := s.handleGetSession(ctx, callRequest(map[string]any{"user_id": "agent-1"}))
	require.NoError(t, err)
	assert.True(t, res.IsError, "unknown users are a tool error")

	for _, text := range []string{"hola", "ABC123", "mujer"} {
		_, err := s.handleSendMessage(ctx, callRequest(nil), map[string]interface{}{"user_id": "agent-1", "text": text})
		require.NoError(t, err)
	}

	res, err = s.handleGetSession(ctx, callRequest(map[string]any{"user_id": "agent-1"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	var sess domain.Session
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &sess))
	assert.Equal(t, domain.StepOnboardAge, sess.Step)
	assert.Equal(t, domain.SexFemale, sess.Draft.Sex)

	res, err = s.handleResetSession(ctx, callRequest(map[string]any{"user_id": "agent-1"}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.NoError(t, json.Unmarshal([]byte(res.Content[0].(mcp.TextContent).Text), &sess))
	assert.Equal(t, domain.StepAwaitAccessCode, sess.Step)
	assert.True(t, sess.Draft.IsEmpty())

	res, err = s.handleResetSession(ctx, callRequest(map[string]any{"user_id": " "}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestToolsAreListed(t *testing.T) {
	s := newTestServer()
	ctx := context.Background()

	ack := s.MCPServer().HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","clientInfo":{"name":"test","version":"0"},"capabilities":{}}}`))
	require.NotNil(t, ack)

	out := s.MCPServer().HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	data, err := json.Marshal(out)
	require.NoError(t, err)
	for _, name := range []string{"send_message", "get_session", "reset_session"} {
		assert.Contains(t, string(data), `"name":"`+name+`"`)
	}

	out = s.MCPServer().HandleMessage(ctx, json.RawMessage(`{"jsonrpc":"2.0","id":3,"method":"resources/read","params":{"uri":"`+VocabularyURI+`"}}`))
	data, err = json.Marshal(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "desayuno")
}
