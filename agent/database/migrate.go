package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"gorm.io/gorm"

	"walletbridge/agent/internal/models"
)

// Migrate runs GORM's AutoMigrate for all models, then applies raw SQL as a
// safety fallback so a fresh database always has the full schema even if a
// model tag is ever mis-read by AutoMigrate.
func Migrate(db *gorm.DB, dsn string) error {
	err := db.AutoMigrate(
		&models.Identity{},
		&models.PriceAlert{},
		&models.WatchlistEntry{},
		&models.ReferralEdge{},
		&models.SupportTicket{},
	)
	if err != nil {
		return fmt.Errorf("gorm auto-migrate: %w", err)
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open sql connection for fallback migrations: %w", err)
	}
	defer sqlDB.Close()

	return executeSQLMigrations(sqlDB)
}

func executeSQLMigrations(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS identities (
            id SERIAL PRIMARY KEY,
            telegram_id BIGINT UNIQUE NOT NULL,
            username TEXT,
            wallet_address TEXT,
            link_token TEXT UNIQUE,
            link_token_expires_at TIMESTAMP,
            linked_at TIMESTAMP,
            notify_enabled BOOLEAN NOT NULL DEFAULT TRUE,
            referral_code TEXT UNIQUE NOT NULL,
            referred_by BIGINT,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS price_alerts (
            id SERIAL PRIMARY KEY,
            owner_id BIGINT NOT NULL,
            direction VARCHAR(8) NOT NULL,
            target_price DECIMAL(30,18) NOT NULL,
            triggered BOOLEAN NOT NULL DEFAULT FALSE,
            triggered_at TIMESTAMP,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS watchlist_entries (
            id SERIAL PRIMARY KEY,
            owner_id BIGINT NOT NULL,
            wallet_address TEXT NOT NULL,
            nickname TEXT,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (owner_id, wallet_address)
        );`,
		`CREATE TABLE IF NOT EXISTS referral_edges (
            id SERIAL PRIMARY KEY,
            referrer_id BIGINT NOT NULL,
            referred_id BIGINT UNIQUE NOT NULL,
            status VARCHAR(16) NOT NULL DEFAULT 'completed',
            completed_at TIMESTAMP,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );`,
		`CREATE TABLE IF NOT EXISTS support_tickets (
            id SERIAL PRIMARY KEY,
            owner_id BIGINT NOT NULL,
            body TEXT NOT NULL,
            status VARCHAR(16) NOT NULL DEFAULT 'open',
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        );`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("fallback migration failed: %w", err)
		}
	}
	return nil
}
