package telegram

import (
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aretw0/nutri/pkg/dispatch"
)

// EventFromUpdate extracts the text message of a webhook update.
// It reports false for updates that carry no text (stickers, edits, callbacks...)
// and for messages outside private chats, where one chat id would stand for
// several people. In a private chat the chat id is the user identity and the
// reply address. The update id makes Telegram's redeliveries of the same update
// share one event id.
func EventFromUpdate(u tgbotapi.Update) (dispatch.Event, bool) {
	msg := u.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" || !msg.Chat.IsPrivate() {
		return dispatch.Event{}, false
	}
	return dispatch.Event{
		UserID:    strconv.FormatInt(msg.Chat.ID, 10),
		Text:      msg.Text,
		Timestamp: time.Unix(int64(msg.Date), 0).UTC(),
		ID:        "tg-" + strconv.Itoa(u.UpdateID),
	}, true
}
