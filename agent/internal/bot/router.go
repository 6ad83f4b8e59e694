package bot

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"walletbridge/agent/database"
	"walletbridge/agent/internal/models"
	"walletbridge/agent/internal/services"
	"walletbridge/shared/logger"
)

const commandPrefix = '/'

// Handler is one command binding: a pure function of the resolved identity
// snapshot and the argument string to a reply. Typed errors are translated
// to user-facing text by the router; handlers never reach the transport.
type Handler func(ctx context.Context, id *models.Identity, args string) (string, error)

const (
	replyUnknownCommand = "Unknown command. Send /help to see what I can do."
	replyUnavailable    = "Service temporarily unavailable, please try again in a moment."
)

// Router parses inbound text into a command and dispatches it against the
// sender's identity. Adding a command is a table entry via Register, not a
// control-flow branch.
type Router struct {
	identities *database.IdentityStore
	handlers   map[string]Handler
	log        *logger.Logger
}

func NewRouter(identities *database.IdentityStore, log *logger.Logger) *Router {
	return &Router{
		identities: identities,
		handlers:   make(map[string]Handler),
		log:        log,
	}
}

func (r *Router) Register(name string, h Handler) {
	r.handlers[strings.ToLower(name)] = h
}

// Dispatch handles one inbound message. The returned bool reports whether a
// reply should be sent; plain chat noise produces no reply and no mutation.
// Dispatch never returns an error: the transport boundary always gets an
// acknowledgement so updates are not redelivered.
func (r *Router) Dispatch(ctx context.Context, telegramID int64, username, text string) (string, bool) {
	name, args, ok := parseCommand(text)
	if !ok {
		return "", false
	}

	id, err := r.identities.GetOrCreate(ctx, telegramID, username)
	if err != nil {
		r.log.Error("identity resolution failed", "telegramID", telegramID, "err", err)
		return replyUnavailable, true
	}

	handler, ok := r.handlers[name]
	if !ok {
		return replyUnknownCommand, true
	}

	r.log.Info("dispatching command", "command", name, "telegramID", telegramID)
	reply, err := handler(ctx, id, args)
	if err != nil {
		return r.replyForError(name, telegramID, err), true
	}
	return reply, true
}

// replyForError translates the typed error taxonomy into user-facing text.
func (r *Router) replyForError(command string, telegramID int64, err error) string {
	switch {
	case errors.Is(err, services.ErrInvalid):
		return "I couldn't read that. Check /help for the expected format."
	case errors.Is(err, services.ErrQuotaExceeded):
		return "You've reached the limit for that. Remove one first, then try again."
	case errors.Is(err, services.ErrAlreadyLinked):
		return "You already have a linked wallet. Use /unlink first if you want to change it."
	case errors.Is(err, services.ErrNotFound):
		return "Nothing found matching that."
	case errors.Is(err, services.ErrUnavailable):
		r.log.Warn("collaborator unavailable during command", "command", command, "telegramID", telegramID, "err", err)
		return replyUnavailable
	default:
		r.log.Error("command handler failed", "command", command, "telegramID", telegramID, "err", err)
		return replyUnavailable
	}
}

// parseCommand splits raw text on the first whitespace run. The head token,
// case-folded and stripped of a trailing @botname mention, is the command;
// the trimmed remainder is the argument string. Text not starting with the
// prefix character is not a command.
func parseCommand(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if text == "" || rune(text[0]) != commandPrefix {
		return "", "", false
	}

	head := text[1:]
	if i := strings.IndexFunc(head, unicode.IsSpace); i >= 0 {
		args = strings.TrimSpace(head[i:])
		head = head[:i]
	}
	if head == "" {
		return "", "", false
	}
	// Group chats address commands as /cmd@botname.
	if at := strings.IndexByte(head, '@'); at >= 0 {
		head = head[:at]
	}
	return strings.ToLower(head), args, true
}
