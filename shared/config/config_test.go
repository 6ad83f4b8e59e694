package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("LINK_BASE_URL", "https://link.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, 15*time.Minute, cfg.Link.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.Alerts.SweepInterval)
	assert.Equal(t, 5, cfg.Alerts.MaxActive)
	assert.Equal(t, 10, cfg.Alerts.MaxWatchlist)
	assert.Equal(t, "ethereum", cfg.Asset.ID)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("LINK_BASE_URL", "https://link.example.com")
	t.Setenv("ALERT_MAX_ACTIVE", "7")
	t.Setenv("ALERT_SWEEP_INTERVAL", "90s")
	t.Setenv("ASSET_ID", "solana")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Alerts.MaxActive)
	assert.Equal(t, 90*time.Second, cfg.Alerts.SweepInterval)
	assert.Equal(t, "solana", cfg.Asset.ID)
}

func TestValidateMissingRequired(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("LINK_BASE_URL", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), ErrNotConfigured)

	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	cfg, err = Load()
	require.NoError(t, err)
	assert.ErrorIs(t, cfg.Validate(), ErrNotConfigured)
}
