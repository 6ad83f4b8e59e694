package notifications

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"
)

// Sender delivers outbound messages over the Telegram Bot API. A rate
// limiter keeps bursts of alert notifications under Telegram's send limits.
type Sender struct {
	bot     *tgbotapi.BotAPI
	limiter *rate.Limiter
}

// New verifies the bot token with a GetMe call and returns a ready Sender.
func New(botToken string) (*Sender, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot api: %w", err)
	}
	if _, err := bot.GetMe(); err != nil {
		return nil, fmt.Errorf("verify bot token with GetMe: %w", err)
	}
	return &Sender{
		bot: bot,
		// Telegram allows ~30 msg/s overall; stay well under it.
		limiter: rate.NewLimiter(rate.Limit(20), 5),
	}, nil
}

// Bot exposes the underlying API client for the update listener.
func (s *Sender) Bot() *tgbotapi.BotAPI { return s.bot }

// Send delivers one Markdown-formatted message with link previews disabled.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait: %w", err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("send telegram message to chat %d: %w", chatID, err)
	}
	return nil
}

// EscapeMarkdown escapes the characters Telegram's Markdown parser treats as
// markup, so wallet addresses and user text render verbatim.
func EscapeMarkdown(s string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"`", "\\`",
		"[", "\\[",
	)
	return replacer.Replace(s)
}
