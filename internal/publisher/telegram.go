package publisher

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxMessageLength is Telegram's limit on message text, in characters.
const maxMessageLength = 4096

// Telegram sends messages to one channel or chat.
type Telegram struct {
	logger  *slog.Logger
	bot     *tgbotapi.BotAPI
	channel string
}

// NewTelegram prepares a bot for endpoint (tgbotapi.APIEndpoint in production). The
// getMe check is advisory: an unreachable API at startup is logged, and sends are
// attempted on every publish regardless.
func NewTelegram(logger *slog.Logger, token, channel, endpoint string, timeout time.Duration) *Telegram {
	bot := &tgbotapi.BotAPI{
		Token:  token,
		Client: &http.Client{Timeout: timeout},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(endpoint)

	if self, err := bot.GetMe(); err != nil {
		logger.Warn("Telegram: getMe failed, continuing", "error", err)
	} else {
		bot.Self = self
		logger.Info("Telegram: authorized", "bot", self.UserName)
	}
	return &Telegram{logger: logger, bot: bot, channel: channel}
}

// Publish sends text to the configured channel. Numeric identifiers are treated as
// chat IDs, anything else as a channel username such as "@updates".
func (t *Telegram) Publish(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	text = truncate(text, maxMessageLength)
	var msg tgbotapi.MessageConfig
	if id, err := strconv.ParseInt(t.channel, 10, 64); err == nil {
		msg = tgbotapi.NewMessage(id, text)
	} else {
		msg = tgbotapi.NewMessageToChannel(t.channel, text)
	}

	if _, err := t.bot.Send(msg); err != nil {
		return err
	}
	return nil
}

func truncate(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit-1]) + "…"
}
