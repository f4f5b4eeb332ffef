package telegram_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aretw0/nutri/pkg/adapters/telegram"
	"github.com/aretw0/nutri/pkg/domain"
	"github.com/aretw0/nutri/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Notifier = (*telegram.Notifier)(nil)

type botAPI struct {
	mu   sync.Mutex
	sent []map[string]string
	fail bool
}

func newBotAPI(t *testing.T) (*botAPI, string) {
	api := &botAPI{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			fmt.Fprint(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Nutri","username":"nutri_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			require.NoError(t, r.ParseForm())
			api.mu.Lock()
			defer api.mu.Unlock()
			if api.fail {
				fmt.Fprint(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
				return
			}
			api.sent = append(api.sent, map[string]string{
				"chat_id": r.FormValue("chat_id"),
				"text":    r.FormValue("text"),
			})
			fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return api, srv.URL + "/bot%s/%s"
}

func TestNotifier_Send(t *testing.T) {
	api, endpoint := newBotAPI(t)
	n, err := telegram.New("token", telegram.WithAPIEndpoint(endpoint))
	require.NoError(t, err)
	assert.Equal(t, "nutri_bot", n.Username())

	require.NoError(t, n.Send(context.Background(), "42", "¡Hola!"))
	require.Len(t, api.sent, 1)
	assert.Equal(t, "42", api.sent[0]["chat_id"])
	assert.Equal(t, "¡Hola!", api.sent[0]["text"])
}

func TestNotifier_Errors(t *testing.T) {
	api, endpoint := newBotAPI(t)
	n, err := telegram.New("token", telegram.WithAPIEndpoint(endpoint))
	require.NoError(t, err)

	assert.Error(t, n.Send(context.Background(), "not-a-chat", "hola"))

	api.fail = true
	err = n.Send(context.Background(), "42", "hola")
	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.ErrorContains(t, err, "blocked")
}

func TestSplit(t *testing.T) {
	assert.Equal(t, []string{"corto"}, telegram.Split("corto", 10))

	text := strings.Repeat("a", 6) + "\n" + strings.Repeat("b", 6)
	parts := telegram.Split(text, 10)
	assert.Equal(t, []string{"aaaaaa\n", "bbbbbb"}, parts)

	long := strings.Repeat("ñ", 25)
	parts = telegram.Split(long, 10)
	require.Len(t, parts, 3)
	assert.Equal(t, long, strings.Join(parts, ""))
}

func TestEventFromUpdate(t *testing.T) {
	var u tgbotapi.Update
	raw := `{"update_id":1001,"message":{"message_id":5,"date":1772409600,"chat":{"id":42,"type":"private"},"text":"hola"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &u))

	ev, ok := telegram.EventFromUpdate(u)
	require.True(t, ok)
	assert.Equal(t, "42", ev.UserID)
	assert.Equal(t, "hola", ev.Text)
	assert.Equal(t, "tg-1001", ev.ID)
	assert.Equal(t, time.Unix(1772409600, 0).UTC(), ev.Timestamp)

	var sticker tgbotapi.Update
	require.NoError(t, json.Unmarshal([]byte(`{"update_id":1002,"message":{"message_id":6,"date":0,"chat":{"id":42,"type":"private"}}}`), &sticker))
	_, ok = telegram.EventFromUpdate(sticker)
	assert.False(t, ok)

	_, ok = telegram.EventFromUpdate(tgbotapi.Update{UpdateID: 1003})
	assert.False(t, ok)
	for _, kind := range []string{"group", "supergroup", "channel"} {
		var shared tgbotapi.Update
		raw := fmt.Sprintf(`{"update_id":1004,"message":{"message_id":7,"date":0,"from":{"id":7},"chat":{"id":-100,"type":%q},"text":"ABC123"}}`, kind)
		require.NoError(t, json.Unmarshal([]byte(raw), &shared))
		_, ok = telegram.EventFromUpdate(shared)
		assert.False(t, ok, "%s chats share one id between members", kind)
	}
}
