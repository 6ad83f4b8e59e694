package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrNotConfigured is returned by Validate when a required collaborator
// endpoint or credential is absent. The boundary checks it once at startup;
// components assume their collaborators are present.
var ErrNotConfigured = errors.New("service not configured")

// TelegramConfig holds the transport collaborator settings.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
	// GroupID, when non-zero, restricts the listener to a single group chat.
	GroupID int64 `mapstructure:"group_id"`
}

// AlertsConfig tunes the alert evaluation engine and the quota enforcer.
type AlertsConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	MaxActive     int           `mapstructure:"max_active"`
	MaxWatchlist  int           `mapstructure:"max_watchlist"`
}

// LinkConfig holds the wallet-link handshake settings.
type LinkConfig struct {
	// BaseURL is the wallet front end; the issued token is appended as a
	// query parameter.
	BaseURL  string        `mapstructure:"base_url"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
}

// Config is the explicit process configuration, constructed once in main and
// passed by reference into each component. Nothing reads process-wide state
// after Load returns.
type Config struct {
	App struct {
		Port        string `mapstructure:"port"`
		Environment string `mapstructure:"environment"`
	} `mapstructure:"app"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`

	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`

	Telegram TelegramConfig `mapstructure:"telegram"`
	Link     LinkConfig     `mapstructure:"link"`
	Alerts   AlertsConfig   `mapstructure:"alerts"`

	Asset struct {
		// ID is the price-feed identifier (CoinGecko id, e.g. "ethereum").
		ID     string `mapstructure:"id"`
		Symbol string `mapstructure:"symbol"`
	} `mapstructure:"asset"`

	Chain struct {
		RPCURL string `mapstructure:"rpc_url"`
	} `mapstructure:"chain"`
}

// Load reads an optional .env file, binds environment variables and returns
// the populated configuration.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: no .env file found, relying on system environment")
	}

	v := viper.New()
	v.AutomaticEnv()

	v.BindEnv("app.port", "PORT")
	v.BindEnv("app.environment", "APP_ENV")
	v.BindEnv("logging.level", "LOG_LEVEL")
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN")
	v.BindEnv("telegram.group_id", "TELEGRAM_GROUP_ID")
	v.BindEnv("link.base_url", "LINK_BASE_URL")
	v.BindEnv("link.token_ttl", "LINK_TOKEN_TTL")
	v.BindEnv("alerts.sweep_interval", "ALERT_SWEEP_INTERVAL")
	v.BindEnv("alerts.max_active", "ALERT_MAX_ACTIVE")
	v.BindEnv("alerts.max_watchlist", "WATCHLIST_MAX_ENTRIES")
	v.BindEnv("asset.id", "ASSET_ID")
	v.BindEnv("asset.symbol", "ASSET_SYMBOL")
	v.BindEnv("chain.rpc_url", "CHAIN_RPC_URL")

	v.SetDefault("app.port", "8080")
	v.SetDefault("app.environment", "production")
	v.SetDefault("logging.level", "info")
	v.SetDefault("link.token_ttl", 15*time.Minute)
	v.SetDefault("alerts.sweep_interval", 5*time.Minute)
	v.SetDefault("alerts.max_active", 5)
	v.SetDefault("alerts.max_watchlist", 10)
	v.SetDefault("asset.id", "ethereum")
	v.SetDefault("asset.symbol", "ETH")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate reports the first missing required setting. This is the single
// NotConfigured boundary check; handlers do not re-check collaborator
// presence.
func (c *Config) Validate() error {
	switch {
	case c.Telegram.BotToken == "":
		return fmt.Errorf("%w: TELEGRAM_BOT_TOKEN is required", ErrNotConfigured)
	case c.Database.URL == "":
		return fmt.Errorf("%w: DATABASE_URL is required", ErrNotConfigured)
	case c.Link.BaseURL == "":
		return fmt.Errorf("%w: LINK_BASE_URL is required", ErrNotConfigured)
	}
	return nil
}
