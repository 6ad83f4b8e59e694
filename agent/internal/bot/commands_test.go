package bot

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletbridge/agent/database"
	"walletbridge/agent/internal/services"
)

type stubPriceSource struct {
	quote *services.PriceQuote
	err   error
}

func (s *stubPriceSource) CurrentPrice(ctx context.Context) (*services.PriceQuote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.quote, nil
}

type stubChain struct {
	balance decimal.Decimal
	err     error
}

func (s *stubChain) Balance(ctx context.Context, address string) (decimal.Decimal, error) {
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.balance, nil
}

type commandFixture struct {
	router     *Router
	identities *database.IdentityStore
	alerts     *database.AlertStore
	referrals  *database.ReferralStore
	price      *stubPriceSource
	chain      *stubChain
}

func newCommandFixture(t *testing.T) *commandFixture {
	t.Helper()
	db := setupTestDB(t)
	log := testLogger(t)

	f := &commandFixture{
		identities: database.NewIdentityStore(db),
		alerts:     database.NewAlertStore(db),
		referrals:  database.NewReferralStore(db),
		price: &stubPriceSource{quote: &services.PriceQuote{
			Price:     decimal.RequireFromString("2500"),
			Change24h: decimal.RequireFromString("1.5"),
			FetchedAt: time.Now(),
		}},
		chain: &stubChain{balance: decimal.RequireFromString("1.25")},
	}
	watchlist := database.NewWatchlistStore(db)

	commands := NewCommands(CommandsDeps{
		Identities: f.identities,
		Alerts:     f.alerts,
		Watchlist:  watchlist,
		Referrals:  f.referrals,
		Tickets:    database.NewTicketStore(db),
		Links:      services.NewLinkTokenManager(f.identities, "https://link.example.com", 15*time.Minute, log),
		Quota:      services.NewQuotaEnforcer(f.alerts, watchlist, 5, 10),
		Price:      f.price,
		Chain:      f.chain,
		Symbol:     "ETH",
		Log:        log,
	})
	f.router = NewRouter(f.identities, log)
	commands.Register(f.router)
	return f
}

func (f *commandFixture) dispatch(t *testing.T, userID int64, text string) string {
	t.Helper()
	reply, ok := f.router.Dispatch(context.Background(), userID, "user", text)
	require.True(t, ok, "command %q should produce a reply", text)
	return reply
}

func TestStartWithReferralCode(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	// The referrer must exist first.
	referrer, err := f.identities.GetOrCreate(ctx, 100, "ref")
	require.NoError(t, err)

	reply := f.dispatch(t, 200, "/start "+referrer.ReferralCode)
	assert.Contains(t, reply, "referral")

	referred, err := f.identities.GetByTelegramID(ctx, 200)
	require.NoError(t, err)
	require.NotNil(t, referred.ReferredBy)
	assert.Equal(t, int64(100), *referred.ReferredBy)

	count, err := f.referrals.CountByReferrer(ctx, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStartSelfReferralCreatesNoEdge(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	// Seed the identity so its own code exists, then replay it.
	me, err := f.identities.GetOrCreate(ctx, 300, "me")
	require.NoError(t, err)

	f.dispatch(t, 300, "/start "+me.ReferralCode)

	refreshed, err := f.identities.GetByTelegramID(ctx, 300)
	require.NoError(t, err)
	assert.Nil(t, refreshed.ReferredBy)

	count, err := f.referrals.CountByReferrer(ctx, 300)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStartReferralBindsAtMostOnce(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	first, err := f.identities.GetOrCreate(ctx, 100, "a")
	require.NoError(t, err)
	second, err := f.identities.GetOrCreate(ctx, 101, "b")
	require.NoError(t, err)

	f.dispatch(t, 200, "/start "+first.ReferralCode)
	f.dispatch(t, 200, "/start "+second.ReferralCode)

	referred, err := f.identities.GetByTelegramID(ctx, 200)
	require.NoError(t, err)
	require.NotNil(t, referred.ReferredBy)
	assert.Equal(t, first.TelegramID, *referred.ReferredBy)
}

func TestStartUnknownCodeStillGreets(t *testing.T) {
	f := newCommandFixture(t)
	reply := f.dispatch(t, 1, "/start no-such-code")
	assert.Contains(t, reply, "Welcome")
}

func TestLinkIssuesURL(t *testing.T) {
	f := newCommandFixture(t)
	reply := f.dispatch(t, 1, "/link")
	assert.Contains(t, reply, "https://link.example.com?token=")
}

func TestUnlinkWithoutWallet(t *testing.T) {
	f := newCommandFixture(t)
	reply := f.dispatch(t, 1, "/unlink")
	assert.Contains(t, reply, "No wallet is linked")
}

func TestAlertCreateAndList(t *testing.T) {
	f := newCommandFixture(t)

	reply := f.dispatch(t, 1, "/alert above 3000")
	assert.Contains(t, reply, "Alert #")

	reply = f.dispatch(t, 1, "/alerts")
	assert.Contains(t, reply, "above 3000")
}

func TestAlertRejectsBadArguments(t *testing.T) {
	f := newCommandFixture(t)

	reply := f.dispatch(t, 1, "/alert sideways 3000")
	assert.Contains(t, reply, "couldn't read that")

	reply = f.dispatch(t, 1, "/alert above not-a-price")
	assert.Contains(t, reply, "couldn't read that")

	reply = f.dispatch(t, 1, "/alert above -5")
	assert.Contains(t, reply, "couldn't read that")

	reply = f.dispatch(t, 1, "/alert")
	assert.Contains(t, reply, "Usage:")
}

func TestAlertQuota(t *testing.T) {
	f := newCommandFixture(t)

	for i := 0; i < 5; i++ {
		reply := f.dispatch(t, 1, fmt.Sprintf("/alert above %d", 1000+i))
		assert.Contains(t, reply, "Alert #")
	}
	reply := f.dispatch(t, 1, "/alert above 9000")
	assert.Contains(t, reply, "limit")

	// Freeing one slot lets the next creation through.
	alerts, err := f.alerts.ListActiveByOwner(context.Background(), 1)
	require.NoError(t, err)
	f.dispatch(t, 1, fmt.Sprintf("/delalert %d", alerts[0].ID))

	reply = f.dispatch(t, 1, "/alert above 9000")
	assert.Contains(t, reply, "Alert #")
}

func TestDelAlertNotFound(t *testing.T) {
	f := newCommandFixture(t)
	reply := f.dispatch(t, 1, "/delalert 999")
	assert.Contains(t, reply, "Nothing found")
}

func TestWatchFlow(t *testing.T) {
	f := newCommandFixture(t)
	address := "0x52908400098527886E0F7030069857D2E4169EE7"

	reply := f.dispatch(t, 1, "/watch "+address+" hot wallet")
	assert.Contains(t, reply, "Added")

	reply = f.dispatch(t, 1, "/watchlist")
	assert.Contains(t, reply, strings.ToLower(address))
	assert.Contains(t, reply, "hot wallet")

	reply = f.dispatch(t, 1, "/unwatch "+strings.ToUpper(address))
	assert.Contains(t, reply, "Removed")

	reply = f.dispatch(t, 1, "/unwatch "+address)
	assert.Contains(t, reply, "Nothing found")
}

func TestWatchRejectsBadAddress(t *testing.T) {
	f := newCommandFixture(t)
	reply := f.dispatch(t, 1, "/watch not-an-address")
	assert.Contains(t, reply, "couldn't read that")
}

func TestNotifyToggle(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	f.dispatch(t, 1, "/notify off")
	id, err := f.identities.GetByTelegramID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, id.NotifyEnabled)

	f.dispatch(t, 1, "/notify on")
	id, err = f.identities.GetByTelegramID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, id.NotifyEnabled)

	reply := f.dispatch(t, 1, "/notify maybe")
	assert.Contains(t, reply, "Usage:")
}

func TestPriceCommand(t *testing.T) {
	f := newCommandFixture(t)
	reply := f.dispatch(t, 1, "/price")
	assert.Contains(t, reply, "2500")

	f.price.err = services.ErrUnavailable
	reply = f.dispatch(t, 1, "/price")
	assert.Equal(t, replyUnavailable, reply)
}

func TestBalanceRequiresLinkedWallet(t *testing.T) {
	f := newCommandFixture(t)
	reply := f.dispatch(t, 1, "/balance")
	assert.Contains(t, reply, "No wallet linked")
}

func TestSupportOpensTicket(t *testing.T) {
	f := newCommandFixture(t)

	reply := f.dispatch(t, 1, "/support my alert never fired")
	assert.Contains(t, reply, "Ticket #")

	reply = f.dispatch(t, 1, "/support")
	assert.Contains(t, reply, "Usage:")
}

func TestReferralShowsCode(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()

	id, err := f.identities.GetOrCreate(ctx, 1, "me")
	require.NoError(t, err)

	reply := f.dispatch(t, 1, "/referral")
	assert.Contains(t, reply, id.ReferralCode)
}
