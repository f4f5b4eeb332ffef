// Package telegram connects the bot to the Telegram Bot API: it turns webhook
// updates into dispatch events and delivers replies with sendMessage.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aretw0/nutri/internal/logging"
	"github.com/aretw0/nutri/pkg/domain"
)

// MaxMessageLength is the Bot API limit for one text message, in characters.
const MaxMessageLength = 4096

// Notifier implements ports.Notifier with the Bot API sendMessage method.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

// Option configures how the bot client is built.
type Option func(*options)

type options struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// WithAPIEndpoint overrides the Bot API endpoint pattern
// (default tgbotapi.APIEndpoint, "https://api.telegram.org/bot%s/%s").
func WithAPIEndpoint(endpoint string) Option {
	return func(o *options) {
		if endpoint != "" {
			o.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets the HTTP client used to reach the Bot API.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithLogger configures a logger for the Notifier.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New authenticates against the Bot API (getMe) and returns a Notifier.
func New(token string, opts ...Option) (*Notifier, error) {
	o := options{
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, o.endpoint, o.client)
	if err != nil {
		return nil, &domain.TransportError{Op: "getMe", Err: err}
	}
	o.logger.Info("Telegram bot authorized", "username", bot.Self.UserName)
	return &Notifier{bot: bot, logger: o.logger}, nil
}

// NewFromBot wraps an existing bot client.
func NewFromBot(bot *tgbotapi.BotAPI) *Notifier {
	return &Notifier{bot: bot, logger: logging.NewNop()}
}

// Username returns the bot's @username.
func (n *Notifier) Username() string {
	return n.bot.Self.UserName
}

// Send delivers text to the chat identified by userID. Texts over the Bot API
// limit are split on line boundaries where possible.
func (n *Notifier) Send(ctx context.Context, userID, text string) error {
	chatID, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram user id %q: %w", userID, err)
	}

	for _, part := range Split(text, MaxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := n.bot.Send(tgbotapi.NewMessage(chatID, part)); err != nil {
			return &domain.TransportError{Op: "sendMessage", Err: err}
		}
	}
	return nil
}

// Split cuts text into chunks of at most limit characters, preferring to break
// after a newline.
func Split(text string, limit int) []string {
	if utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var parts []string
	runes := []rune(text)
	for len(runes) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if runes[i] == '\n' {
				cut = i + 1
				break
			}
		}
		parts = append(parts, string(runes[:cut]))
		runes = runes[cut:]
	}
	if len(runes) > 0 {
		parts = append(parts, string(runes))
	}
	return parts
}
