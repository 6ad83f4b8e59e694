package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"walletbridge/shared/logger"
	"walletbridge/shared/notifications"
)

// Listener pulls Telegram updates and feeds them through the router. Each
// update is handled in its own goroutine; there is no shared mutable state
// between invocations.
type Listener struct {
	sender *notifications.Sender
	router *Router
	log    *logger.Logger
}

func NewListener(sender *notifications.Sender, router *Router, log *logger.Logger) *Listener {
	return &Listener{sender: sender, router: router, log: log}
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := l.sender.Bot().GetUpdatesChan(u)
	l.log.Info("listening for telegram updates")

	for {
		select {
		case update := <-updates:
			// An update without message text is acknowledged by the
			// long-poll cycle itself; nothing to dispatch.
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			go l.handle(ctx, update)
		case <-ctx.Done():
			l.log.Info("context cancelled, stopping telegram listener")
			l.sender.Bot().StopReceivingUpdates()
			return
		}
	}
}

func (l *Listener) handle(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg.From == nil {
		// Channel posts carry no sender; there is nobody to attribute
		// the command to.
		return
	}

	reply, ok := l.router.Dispatch(ctx, msg.From.ID, msg.From.UserName, msg.Text)
	if !ok {
		return
	}
	if err := l.sender.Send(ctx, msg.Chat.ID, reply); err != nil {
		l.log.Error("failed to send reply", "chatID", msg.Chat.ID, "err", err)
	}
}
