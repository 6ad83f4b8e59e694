package bot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"walletbridge/agent/database"
	"walletbridge/agent/internal/models"
	"walletbridge/shared/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Identity{},
		&models.PriceAlert{},
		&models.WatchlistEntry{},
		&models.ReferralEdge{},
		&models.SupportTicket{},
	))
	return db
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error"})
	require.NoError(t, err)
	return log
}

func TestParseCommand(t *testing.T) {
	cases := []struct {
		text     string
		name     string
		args     string
		ok       bool
	}{
		{"/help", "help", "", true},
		{"/ALERT above 1.5", "alert", "above 1.5", true},
		{"/watch   0xabc   my vault", "watch", "0xabc   my vault", true},
		{"/start@walletbridge_bot ref123", "start", "ref123", true},
		{"  /help  ", "help", "", true},
		{"gm everyone", "", "", false},
		{"", "", "", false},
		{"/", "", "", false},
		{"price?", "", "", false},
	}
	for _, tc := range cases {
		name, args, ok := parseCommand(tc.text)
		assert.Equal(t, tc.ok, ok, "text=%q", tc.text)
		assert.Equal(t, tc.name, name, "text=%q", tc.text)
		assert.Equal(t, tc.args, args, "text=%q", tc.text)
	}
}

func TestDispatchIgnoresNoise(t *testing.T) {
	db := setupTestDB(t)
	identities := database.NewIdentityStore(db)
	router := NewRouter(identities, testLogger(t))
	ctx := context.Background()

	reply, ok := router.Dispatch(ctx, 1, "alice", "just chatting about prices")
	assert.False(t, ok)
	assert.Empty(t, reply)

	// Noise consumes nothing: no identity row was created.
	_, err := identities.GetByTelegramID(ctx, 1)
	assert.ErrorIs(t, err, database.ErrNoRows)
}

func TestDispatchUnknownCommand(t *testing.T) {
	db := setupTestDB(t)
	identities := database.NewIdentityStore(db)
	router := NewRouter(identities, testLogger(t))
	ctx := context.Background()

	reply, ok := router.Dispatch(ctx, 1, "alice", "/frobnicate now")
	assert.True(t, ok)
	assert.Equal(t, replyUnknownCommand, reply)

	// Identity resolution precedes dispatch, so the sender now exists.
	_, err := identities.GetByTelegramID(ctx, 1)
	assert.NoError(t, err)
}

func TestDispatchRegisteredHandler(t *testing.T) {
	db := setupTestDB(t)
	router := NewRouter(database.NewIdentityStore(db), testLogger(t))

	var gotArgs string
	var gotID int64
	router.Register("echo", func(ctx context.Context, id *models.Identity, args string) (string, error) {
		gotArgs = args
		gotID = id.TelegramID
		return "echoed", nil
	})

	reply, ok := router.Dispatch(context.Background(), 77, "bob", "/echo one two")
	assert.True(t, ok)
	assert.Equal(t, "echoed", reply)
	assert.Equal(t, "one two", gotArgs)
	assert.Equal(t, int64(77), gotID)
}

func TestDispatchTranslatesTypedErrors(t *testing.T) {
	db := setupTestDB(t)
	router := NewRouter(database.NewIdentityStore(db), testLogger(t))

	router.Register("boom", func(ctx context.Context, id *models.Identity, args string) (string, error) {
		return "", assert.AnError
	})

	// An unexpected handler error never leaks; the user gets the generic
	// unavailability notice and the transport still gets its reply.
	reply, ok := router.Dispatch(context.Background(), 1, "", "/boom")
	assert.True(t, ok)
	assert.Equal(t, replyUnavailable, reply)
}
