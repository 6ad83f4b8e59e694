package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Identity is the per-participant record. One row per Telegram user, created
// lazily on the first message we see from them and never deleted.
type Identity struct {
	ID                 uint    `gorm:"primaryKey"`
	TelegramID         int64   `gorm:"uniqueIndex;not null"`
	Username           *string `gorm:"type:text"`
	WalletAddress      *string `gorm:"type:text;index"` // lower-cased hex
	LinkToken          *string `gorm:"type:text;uniqueIndex"`
	LinkTokenExpiresAt *time.Time
	LinkedAt           *time.Time
	NotifyEnabled      bool      `gorm:"not null;default:true"`
	ReferralCode       string    `gorm:"type:text;uniqueIndex;not null"`
	ReferredBy         *int64    `gorm:"index"` // referrer's TelegramID, set at most once
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

// Linked reports whether a wallet is currently bound to this identity.
func (i *Identity) Linked() bool {
	return i.WalletAddress != nil && *i.WalletAddress != ""
}

// PriceAlert is a one-shot threshold. Once Triggered flips true the row is
// terminal: it is never re-evaluated and never re-triggered.
type PriceAlert struct {
	ID          uint            `gorm:"primaryKey"`
	OwnerID     int64           `gorm:"index;not null"`           // owner's TelegramID
	Direction   string          `gorm:"type:varchar(8);not null"` // "above" | "below"
	TargetPrice decimal.Decimal `gorm:"type:decimal(30,18);not null"`
	Triggered   bool            `gorm:"not null;default:false;index"`
	TriggeredAt *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// WatchlistEntry pairs an owner with a wallet address they follow.
type WatchlistEntry struct {
	ID            uint      `gorm:"primaryKey"`
	OwnerID       int64     `gorm:"not null;uniqueIndex:idx_watch_owner_addr"`
	WalletAddress string    `gorm:"type:text;not null;uniqueIndex:idx_watch_owner_addr"` // lower-cased hex
	Nickname      string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// ReferralEdge records that ReferredID joined through ReferrerID's code.
// ReferredID is unique: a participant is referred at most once.
type ReferralEdge struct {
	ID          uint  `gorm:"primaryKey"`
	ReferrerID  int64 `gorm:"index;not null"`
	ReferredID  int64 `gorm:"uniqueIndex;not null"`
	Status      string `gorm:"type:varchar(16);not null;default:'completed'"`
	CompletedAt *time.Time
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// SupportTicket is append-only from the bot's point of view; status moves
// happen in external support tooling.
type SupportTicket struct {
	ID        uint      `gorm:"primaryKey"`
	OwnerID   int64     `gorm:"index;not null"`
	Body      string    `gorm:"type:text;not null"`
	Status    string    `gorm:"type:varchar(16);not null;default:'open'"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}
