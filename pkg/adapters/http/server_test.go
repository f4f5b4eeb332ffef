package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nutrihttp "github.com/aretw0/nutri/pkg/adapters/http"
	"github.com/aretw0/nutri/pkg/adapters/memory"
	"github.com/aretw0/nutri/pkg/dispatch"
	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/machine"
	"github.com/aretw0/nutri/pkg/ports"
	"github.com/aretw0/nutri/pkg/session"
)

type fixture struct {
	store  ports.SessionStore
	outbox *memory.Outbox
	server *nutrihttp.Server
	http   http.Handler
}

func newFixture(t *testing.T, store ports.SessionStore, opts ...nutrihttp.Option) *fixture {
	t.Helper()
	if store == nil {
		store = memory.NewStore()
	}
	gw := memory.NewGateway(memory.WithCodes("ABC123"), memory.WithCatalog(memory.DefaultCatalog))
	outbox := memory.NewOutbox()
	sessions := session.NewManager(store)
	d := dispatch.New(sessions, machine.New(gw), dispatch.WithNotifier(outbox))
	srv := nutrihttp.NewServer(d, sessions, opts...)
	return &fixture{store: store, outbox: outbox, server: srv, http: srv.Routes()}
}

func (f *fixture) do(method, path string, body any, header ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	f.http.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestServer_Root(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"status": "Bot running"}, decode[map[string]string](t, w))

	w = f.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodGet, "/info", nil)
	assert.Equal(t, "nutri", decode[map[string]string](t, w)["app"])

	w = f.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "metrics are opt-in")
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "nutri_test_total"})
	reg.MustRegister(counter)
	counter.Inc()

	f := newFixture(t, nil, nutrihttp.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	w := f.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "nutri_test_total 1")
}

func TestServer_PostMessage(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: "hola", EventID: "ev-1"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[nutrihttp.MessageResponse](t, w)
	assert.Equal(t, string(domain.StepAwaitAccessCode), resp.Step)
	assert.Equal(t, string(machine.OutcomeAdvanced), resp.Outcome)
	assert.Equal(t, "ev-1", resp.EventID)
	assert.NotEmpty(t, resp.Reply)

	w = f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: "WRONG"})
	resp = decode[nutrihttp.MessageResponse](t, w)
	assert.Equal(t, string(domain.StepAwaitAccessCode), resp.Step)
	assert.Equal(t, string(machine.OutcomeRejected), resp.Outcome)

	// The reply is also delivered through the notifier.
	assert.Len(t, f.outbox.Messages(), 2)
}

func TestServer_PostMessageErrors(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{Text: "hola"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.http.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: strings.Repeat("a", 5000)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// The limit counts characters: 2100 accented letters are 4200 bytes.
	w = f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: strings.Repeat("é", 2100)})
	assert.Equal(t, http.StatusOK, w.Code)
	var resp nutrihttp.MessageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEqual(t, string(machine.OutcomeInvalid), resp.Outcome)
}

type brokenStore struct{ ports.SessionStore }

func (brokenStore) Load(context.Context, string) (*domain.Session, error) {
	return nil, errors.New("connection refused")
}

func TestServer_PostMessageStoreDown(t *testing.T) {
	f := newFixture(t, brokenStore{memory.NewStore()})

	w := f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: "hola"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode[nutrihttp.MessageResponse](t, w)
	assert.Equal(t, dispatch.MsgUnavailable, resp.Reply)
	assert.Equal(t, string(dispatch.OutcomeFailed), resp.Outcome)

	w = f.do(http.MethodGet, "/v1/sessions/u1", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestServer_GetSession(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodGet, "/v1/sessions/u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: "hola"})
	f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: "ABC123"})
	f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: "mujer"})

	w = f.do(http.MethodGet, "/v1/sessions/u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	s := decode[domain.Session](t, w)
	assert.Equal(t, domain.StepOnboardAge, s.Step)
	assert.Equal(t, domain.SexFemale, s.Draft.Sex)
	assert.Equal(t, int64(3), s.Version)
}

func webhookUpdate(updateID int, chatID int64, text string) map[string]any {
	return map[string]any{
		"update_id": updateID,
		"message": map[string]any{
			"message_id": updateID,
			"date":       1767225600,
			"chat":       map[string]any{"id": chatID, "type": "private"},
			"text":       text,
		},
	}
}

func TestServer_Webhook(t *testing.T) {
	f := newFixture(t, nil)

	w := f.do(http.MethodPost, "/telegram/webhook", webhookUpdate(1, 777, "hola"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]bool{"ok": true}, decode[map[string]bool](t, w))

	s, err := f.store.Load(context.Background(), "777")
	require.NoError(t, err)
	assert.Equal(t, domain.StepAwaitAccessCode, s.Step)

	msgs := f.outbox.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "777", msgs[0].UserID)

	// Stickers and other non-text updates are acknowledged and ignored.
	w = f.do(http.MethodPost, "/telegram/webhook", map[string]any{"update_id": 2})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.outbox.Messages(), 1)
	// Group chats are acknowledged but never become a session.
	group := webhookUpdate(3, -100, "hola")
	group["message"].(map[string]any)["chat"] = map[string]any{"id": -100, "type": "group"}
	w = f.do(http.MethodPost, "/telegram/webhook", group)
	assert.Equal(t, http.StatusOK, w.Code)
	_, err = f.store.Load(context.Background(), "-100")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.Len(t, f.outbox.Messages(), 1)
}

func TestServer_WebhookAcknowledgesFailures(t *testing.T) {
	f := newFixture(t, brokenStore{memory.NewStore()})

	w := f.do(http.MethodPost, "/telegram/webhook", webhookUpdate(1, 777, "hola"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]bool{"ok": true}, decode[map[string]bool](t, w))
}

func TestServer_WebhookSecret(t *testing.T) {
	f := newFixture(t, nil, nutrihttp.WithWebhookSecret("s3cret"))

	w := f.do(http.MethodPost, "/telegram/webhook", webhookUpdate(1, 777, "hola"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodPost, "/telegram/webhook", webhookUpdate(1, 777, "hola"), nutrihttp.SecretHeader, "s3cret")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, f.outbox.Messages(), 1)
}

func TestServer_CORS(t *testing.T) {
	f := newFixture(t, nil)
	w := f.do(http.MethodOptions, "/v1/messages", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

// readEvents collects SSE data lines until n arrive or the stream ends.
func readEvents(t *testing.T, resp *http.Response, n int) []string {
	t.Helper()
	var out []string
	sc := bufio.NewScanner(resp.Body)
	for len(out) < n && sc.Scan() {
		if data, ok := strings.CutPrefix(sc.Text(), "data: "); ok {
			out = append(out, data)
		}
	}
	return out
}

func TestSubscribeEvents(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.http)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/sessions/u1/events?watch=step,draft", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return f.server.Streams.Subscribers("u1") == 1 }, time.Second, 10*time.Millisecond)

	// Someone else's messages never reach this stream.
	f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u2", Text: "hola"})

	f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: "hola"})
	// Rejected code: nothing persisted, nothing broadcast.
	f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: "WRONG"})
	f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: "ABC123"})
	f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: "hombre"})

	events := readEvents(t, resp, 4)
	require.Len(t, events, 4)
	assert.Equal(t, "connected", events[0])

	var first domain.SessionDiff
	require.NoError(t, json.Unmarshal([]byte(events[1]), &first))
	assert.Equal(t, "u1", first.UserID)
	assert.Equal(t, domain.StepAwaitAccessCode, *first.ToStep)

	var last domain.SessionDiff
	require.NoError(t, json.Unmarshal([]byte(events[3]), &last))
	assert.Equal(t, domain.StepOnboardAge, *last.ToStep)
	assert.Equal(t, []string{domain.FieldSex}, last.Added)
}

func TestSubscribeEvents_WatchFilter(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.http)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/sessions/u1/events?watch=category", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return f.server.Streams.Subscribers("u1") == 1 }, time.Second, 10*time.Millisecond)

	for _, line := range []string{"hola", "ABC123", "mujer", "30", "165", "60", "ligero", "mantenimiento", "cena"} {
		w := f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: line})
		require.Equal(t, http.StatusOK, w.Code, line)
	}

	events := readEvents(t, resp, 2)
	require.Len(t, events, 2)

	var diff domain.SessionDiff
	require.NoError(t, json.Unmarshal([]byte(events[1]), &diff))
	require.NotNil(t, diff.Category, "only the category change passes the filter")
	assert.Equal(t, domain.CategoryDinner, *diff.Category)
}

func TestSubscribeEvents_OutlivesWriteTimeout(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewUnstartedServer(f.http)
	ts.Config.WriteTimeout = 300 * time.Millisecond
	ts.Start()
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/v1/sessions/u1/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return f.server.Streams.Subscribers("u1") == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(500 * time.Millisecond)

	w := f.do(http.MethodPost, "/v1/messages", nutrihttp.MessageRequest{UserID: "u1", Text: "hola"})
	require.Equal(t, http.StatusOK, w.Code)

	events := readEvents(t, resp, 2)
	require.Len(t, events, 2)
	var diff domain.SessionDiff
	require.NoError(t, json.Unmarshal([]byte(events[1]), &diff))
	assert.Equal(t, domain.StepAwaitAccessCode, *diff.ToStep)
	assert.Equal(t, 1, f.server.Streams.Subscribers("u1"))
}
