package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"walletbridge/agent/database"
	"walletbridge/agent/internal/models"
	"walletbridge/agent/internal/services"
	"walletbridge/shared/logger"
	"walletbridge/shared/notifications"
)

// timeNow is swapped in tests.
var timeNow = time.Now

// BalanceReader is the chain-RPC collaborator used by /balance.
type BalanceReader interface {
	Balance(ctx context.Context, address string) (decimal.Decimal, error)
}

// Commands bundles every command handler with its collaborators. Register
// wires them into a router's table.
type Commands struct {
	identities *database.IdentityStore
	alerts     *database.AlertStore
	watchlist  *database.WatchlistStore
	referrals  *database.ReferralStore
	tickets    *database.TicketStore
	links      *services.LinkTokenManager
	quota      *services.QuotaEnforcer
	price      services.PriceSource
	chain      BalanceReader
	symbol     string
	log        *logger.Logger
}

type CommandsDeps struct {
	Identities *database.IdentityStore
	Alerts     *database.AlertStore
	Watchlist  *database.WatchlistStore
	Referrals  *database.ReferralStore
	Tickets    *database.TicketStore
	Links      *services.LinkTokenManager
	Quota      *services.QuotaEnforcer
	Price      services.PriceSource
	Chain      BalanceReader
	Symbol     string
	Log        *logger.Logger
}

func NewCommands(deps CommandsDeps) *Commands {
	return &Commands{
		identities: deps.Identities,
		alerts:     deps.Alerts,
		watchlist:  deps.Watchlist,
		referrals:  deps.Referrals,
		tickets:    deps.Tickets,
		links:      deps.Links,
		quota:      deps.Quota,
		price:      deps.Price,
		chain:      deps.Chain,
		symbol:     deps.Symbol,
		log:        deps.Log,
	}
}

// Register binds every command to the router's table.
func (c *Commands) Register(r *Router) {
	r.Register("start", c.Start)
	r.Register("help", c.Help)
	r.Register("link", c.Link)
	r.Register("unlink", c.Unlink)
	r.Register("status", c.Status)
	r.Register("price", c.Price)
	r.Register("balance", c.Balance)
	r.Register("alert", c.CreateAlert)
	r.Register("alerts", c.ListAlerts)
	r.Register("delalert", c.DeleteAlert)
	r.Register("watch", c.Watch)
	r.Register("unwatch", c.Unwatch)
	r.Register("watchlist", c.Watchlist)
	r.Register("notify", c.Notify)
	r.Register("referral", c.Referral)
	r.Register("support", c.Support)
}

const helpText = `Available commands:
/link - Link your wallet
/unlink - Unlink your wallet
/status - Your account overview
/price - Current price
/balance - Balance of your linked wallet
/alert above|below <price> - Set a price alert
/alerts - List your active alerts
/delalert <id> - Delete an alert
/watch <address> [nickname] - Watch a wallet
/unwatch <address> - Stop watching a wallet
/watchlist - List watched wallets
/notify on|off - Toggle alert notifications
/referral - Your referral code
/support <message> - Contact support`

// Start greets the user and, when a valid referral code rides along, binds
// the referral edge. A participant is referred at most once and never by
// their own code.
func (c *Commands) Start(ctx context.Context, id *models.Identity, args string) (string, error) {
	greeting := fmt.Sprintf("Welcome! I track %s prices and your linked wallet.\n\n%s", c.symbol, helpText)

	code := strings.TrimSpace(args)
	if code == "" {
		return greeting, nil
	}
	if code == id.ReferralCode {
		// Self-referral: no edge, no error, just the greeting.
		c.log.Debug("self-referral ignored", "telegramID", id.TelegramID)
		return greeting, nil
	}
	if id.ReferredBy != nil {
		return greeting, nil
	}

	referrer, err := c.identities.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, database.ErrNoRows) {
			return greeting, nil
		}
		return "", fmt.Errorf("%w: referral lookup: %v", services.ErrUnavailable, err)
	}

	bound, err := c.identities.SetReferrer(ctx, id.TelegramID, referrer.TelegramID)
	if err != nil {
		return "", fmt.Errorf("%w: bind referrer: %v", services.ErrUnavailable, err)
	}
	if bound {
		if _, err := c.referrals.Create(ctx, referrer.TelegramID, id.TelegramID, timeNow()); err != nil {
			c.log.Error("referral edge insert failed after referrer bind", "referrer", referrer.TelegramID, "referred", id.TelegramID, "err", err)
		}
		greeting = "You joined through a referral. Welcome aboard!\n\n" + greeting
	}
	return greeting, nil
}

func (c *Commands) Help(ctx context.Context, id *models.Identity, args string) (string, error) {
	return helpText, nil
}

func (c *Commands) Link(ctx context.Context, id *models.Identity, args string) (string, error) {
	url, err := c.links.Issue(ctx, id)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Open this link, connect your wallet and sign the message:\n%s\n\nThe link expires in 15 minutes.", url), nil
}

func (c *Commands) Unlink(ctx context.Context, id *models.Identity, args string) (string, error) {
	cleared, err := c.identities.ClearWallet(ctx, id.TelegramID)
	if err != nil {
		return "", fmt.Errorf("%w: unlink wallet: %v", services.ErrUnavailable, err)
	}
	if !cleared {
		return "No wallet is linked. Use /link to link one.", nil
	}
	return "Wallet unlinked.", nil
}

func (c *Commands) Status(ctx context.Context, id *models.Identity, args string) (string, error) {
	alertCount, err := c.alerts.CountActiveByOwner(ctx, id.TelegramID)
	if err != nil {
		return "", fmt.Errorf("%w: count alerts: %v", services.ErrUnavailable, err)
	}
	watchCount, err := c.watchlist.CountByOwner(ctx, id.TelegramID)
	if err != nil {
		return "", fmt.Errorf("%w: count watchlist: %v", services.ErrUnavailable, err)
	}

	wallet := "not linked"
	if id.Linked() {
		wallet = "`" + *id.WalletAddress + "`"
	}
	notify := "off"
	if id.NotifyEnabled {
		notify = "on"
	}
	return fmt.Sprintf("*Your account*\nWallet: %s\nActive alerts: %d\nWatched wallets: %d\nNotifications: %s",
		wallet, alertCount, watchCount, notify), nil
}

func (c *Commands) Price(ctx context.Context, id *models.Identity, args string) (string, error) {
	quote, err := c.price.CurrentPrice(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("*%s*: $%s\n24h change: %s%%\n24h volume: $%s\nMarket cap: $%s",
		c.symbol,
		quote.Price.StringFixed(4),
		quote.Change24h.StringFixed(2),
		quote.Volume24h.StringFixed(0),
		quote.MarketCap.StringFixed(0),
	), nil
}

func (c *Commands) Balance(ctx context.Context, id *models.Identity, args string) (string, error) {
	if !id.Linked() {
		return "No wallet linked yet. Use /link first.", nil
	}
	balance, err := c.chain.Balance(ctx, *id.WalletAddress)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Balance of `%s`:\n%s %s", *id.WalletAddress, balance.StringFixed(6), c.symbol), nil
}

// CreateAlert handles `/alert above|below <price>`, subject to the active
// alert quota.
func (c *Commands) CreateAlert(ctx context.Context, id *models.Identity, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		return "Usage: /alert above|below <price>", nil
	}

	direction := strings.ToLower(fields[0])
	if direction != services.DirectionAbove && direction != services.DirectionBelow {
		return "", fmt.Errorf("%w: direction must be above or below", services.ErrInvalid)
	}
	target, err := decimal.NewFromString(fields[1])
	if err != nil || !target.IsPositive() {
		return "", fmt.Errorf("%w: price must be a positive number", services.ErrInvalid)
	}

	if err := c.quota.Check(ctx, id.TelegramID, services.ResourceAlerts); err != nil {
		return "", err
	}
	alert, err := c.alerts.Create(ctx, id.TelegramID, direction, target)
	if err != nil {
		return "", fmt.Errorf("%w: create alert: %v", services.ErrUnavailable, err)
	}
	return fmt.Sprintf("Alert #%d set: %s %s %s. I'll ping you once.", alert.ID, c.symbol, direction, target.String()), nil
}

func (c *Commands) ListAlerts(ctx context.Context, id *models.Identity, args string) (string, error) {
	alerts, err := c.alerts.ListActiveByOwner(ctx, id.TelegramID)
	if err != nil {
		return "", fmt.Errorf("%w: list alerts: %v", services.ErrUnavailable, err)
	}
	if len(alerts) == 0 {
		return "No active alerts. Set one with /alert above|below <price>.", nil
	}
	var b strings.Builder
	b.WriteString("*Active alerts*\n")
	for _, a := range alerts {
		fmt.Fprintf(&b, "#%d: %s %s %s\n", a.ID, c.symbol, a.Direction, a.TargetPrice.String())
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (c *Commands) DeleteAlert(ctx context.Context, id *models.Identity, args string) (string, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(args), "#"))
	alertID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return "Usage: /delalert <id> (see /alerts for ids)", nil
	}
	deleted, err := c.alerts.Delete(ctx, id.TelegramID, uint(alertID))
	if err != nil {
		return "", fmt.Errorf("%w: delete alert: %v", services.ErrUnavailable, err)
	}
	if !deleted {
		return "", fmt.Errorf("%w: no active alert #%d", services.ErrNotFound, alertID)
	}
	return fmt.Sprintf("Alert #%d deleted.", alertID), nil
}

// Watch handles `/watch <address> [nickname]`, subject to the watchlist
// quota.
func (c *Commands) Watch(ctx context.Context, id *models.Identity, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "Usage: /watch <address> [nickname]", nil
	}
	address := fields[0]
	if !services.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q is not a valid address", services.ErrInvalid, address)
	}
	nickname := strings.Join(fields[1:], " ")

	if err := c.quota.Check(ctx, id.TelegramID, services.ResourceWatchlist); err != nil {
		return "", err
	}
	created, err := c.watchlist.Upsert(ctx, id.TelegramID, services.CanonicalAddress(address), nickname)
	if err != nil {
		return "", fmt.Errorf("%w: save watchlist entry: %v", services.ErrUnavailable, err)
	}
	if created {
		return "Added to your watchlist.", nil
	}
	return "Watchlist entry updated.", nil
}

func (c *Commands) Unwatch(ctx context.Context, id *models.Identity, args string) (string, error) {
	address := strings.TrimSpace(args)
	if address == "" {
		return "Usage: /unwatch <address>", nil
	}
	removed, err := c.watchlist.Delete(ctx, id.TelegramID, services.CanonicalAddress(address))
	if err != nil {
		return "", fmt.Errorf("%w: remove watchlist entry: %v", services.ErrUnavailable, err)
	}
	if !removed {
		return "", fmt.Errorf("%w: that address is not on your watchlist", services.ErrNotFound)
	}
	return "Removed from your watchlist.", nil
}

func (c *Commands) Watchlist(ctx context.Context, id *models.Identity, args string) (string, error) {
	entries, err := c.watchlist.ListByOwner(ctx, id.TelegramID)
	if err != nil {
		return "", fmt.Errorf("%w: list watchlist: %v", services.ErrUnavailable, err)
	}
	if len(entries) == 0 {
		return "Your watchlist is empty. Add a wallet with /watch <address>.", nil
	}
	var b strings.Builder
	b.WriteString("*Watchlist*\n")
	for _, e := range entries {
		if e.Nickname != "" {
			fmt.Fprintf(&b, "%s: `%s`\n", notifications.EscapeMarkdown(e.Nickname), e.WalletAddress)
		} else {
			fmt.Fprintf(&b, "`%s`\n", e.WalletAddress)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (c *Commands) Notify(ctx context.Context, id *models.Identity, args string) (string, error) {
	var enabled bool
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		return "Usage: /notify on|off", nil
	}
	if err := c.identities.SetNotify(ctx, id.TelegramID, enabled); err != nil {
		return "", fmt.Errorf("%w: update notification preference: %v", services.ErrUnavailable, err)
	}
	if enabled {
		return "Notifications enabled.", nil
	}
	return "Notifications disabled. Alerts will still be consumed when they trigger.", nil
}

func (c *Commands) Referral(ctx context.Context, id *models.Identity, args string) (string, error) {
	count, err := c.referrals.CountByReferrer(ctx, id.TelegramID)
	if err != nil {
		return "", fmt.Errorf("%w: count referrals: %v", services.ErrUnavailable, err)
	}
	return fmt.Sprintf("Your referral code: `%s`\nFriends referred: %d\n\nThey can join with /start %s", id.ReferralCode, count, id.ReferralCode), nil
}

func (c *Commands) Support(ctx context.Context, id *models.Identity, args string) (string, error) {
	body := strings.TrimSpace(args)
	if body == "" {
		return "Usage: /support <describe your problem>", nil
	}
	ticket, err := c.tickets.Create(ctx, id.TelegramID, body)
	if err != nil {
		return "", fmt.Errorf("%w: create support ticket: %v", services.ErrUnavailable, err)
	}
	return fmt.Sprintf("Ticket #%d opened. The support team will reach out here.", ticket.ID), nil
}
