package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walletbridge/agent/database"
)

func TestQuotaAlertsBoundary(t *testing.T) {
	db := setupTestDB(t)
	alerts := database.NewAlertStore(db)
	watchlist := database.NewWatchlistStore(db)
	quota := NewQuotaEnforcer(alerts, watchlist, 5, 10)
	ctx := context.Background()

	var lastID uint
	for i := 0; i < 5; i++ {
		require.NoError(t, quota.Check(ctx, 1, ResourceAlerts))
		alert, err := alerts.Create(ctx, 1, DirectionAbove, decimal.NewFromInt(int64(i+1)))
		require.NoError(t, err)
		lastID = alert.ID
	}

	// Exactly 5 active: the 6th is denied.
	assert.ErrorIs(t, quota.Check(ctx, 1, ResourceAlerts), ErrQuotaExceeded)

	// Another participant is unaffected.
	require.NoError(t, quota.Check(ctx, 2, ResourceAlerts))

	// Deleting one frees a slot.
	deleted, err := alerts.Delete(ctx, 1, lastID)
	require.NoError(t, err)
	require.True(t, deleted)
	assert.NoError(t, quota.Check(ctx, 1, ResourceAlerts))
}

func TestQuotaWatchlistBoundary(t *testing.T) {
	db := setupTestDB(t)
	alerts := database.NewAlertStore(db)
	watchlist := database.NewWatchlistStore(db)
	quota := NewQuotaEnforcer(alerts, watchlist, 5, 10)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, quota.Check(ctx, 1, ResourceWatchlist))
		_, err := watchlist.Upsert(ctx, 1, fmt.Sprintf("0x%040d", i), "")
		require.NoError(t, err)
	}
	assert.ErrorIs(t, quota.Check(ctx, 1, ResourceWatchlist), ErrQuotaExceeded)
}

func TestQuotaUnknownKind(t *testing.T) {
	db := setupTestDB(t)
	quota := NewQuotaEnforcer(database.NewAlertStore(db), database.NewWatchlistStore(db), 5, 10)
	assert.ErrorIs(t, quota.Check(context.Background(), 1, ResourceKind("bogus")), ErrInvalid)
}
