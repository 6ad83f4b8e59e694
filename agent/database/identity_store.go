package database

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"walletbridge/agent/internal/models"
)

// ErrNoRows is returned when a lookup matches no identity.
var ErrNoRows = errors.New("no matching rows")

// IdentityStore owns all reads and writes of the identity record. Every
// mutation that must be exactly-once is expressed as a single conditional
// UPDATE so callers never do read-modify-write.
type IdentityStore struct {
	db *gorm.DB
}

func NewIdentityStore(db *gorm.DB) *IdentityStore {
	return &IdentityStore{db: db}
}

// GetOrCreate resolves the identity for a Telegram user, creating it on
// first contact. A changed username is refreshed on every observed update.
func (s *IdentityStore) GetOrCreate(ctx context.Context, telegramID int64, username string) (*models.Identity, error) {
	var id models.Identity
	err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		id = models.Identity{
			TelegramID:    telegramID,
			NotifyEnabled: true,
			ReferralCode:  newReferralCode(),
		}
		if username != "" {
			id.Username = &username
		}
		if err := s.db.WithContext(ctx).Create(&id).Error; err != nil {
			return nil, fmt.Errorf("create identity %d: %w", telegramID, err)
		}
		return &id, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load identity %d: %w", telegramID, err)
	}

	if username != "" && (id.Username == nil || *id.Username != username) {
		id.Username = &username
		if err := s.db.WithContext(ctx).Model(&models.Identity{}).
			Where("telegram_id = ?", telegramID).
			Update("username", username).Error; err != nil {
			return nil, fmt.Errorf("refresh username for %d: %w", telegramID, err)
		}
	}
	return &id, nil
}

func (s *IdentityStore) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Identity, error) {
	var id models.Identity
	err := s.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("load identity %d: %w", telegramID, err)
	}
	return &id, nil
}

// GetByLinkToken looks up the identity currently holding the exact token
// value. Expired tokens are still returned; expiry is the caller's check.
func (s *IdentityStore) GetByLinkToken(ctx context.Context, token string) (*models.Identity, error) {
	var id models.Identity
	err := s.db.WithContext(ctx).Where("link_token = ?", token).First(&id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("load identity by link token: %w", err)
	}
	return &id, nil
}

func (s *IdentityStore) GetByReferralCode(ctx context.Context, code string) (*models.Identity, error) {
	var id models.Identity
	err := s.db.WithContext(ctx).Where("referral_code = ?", code).First(&id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("load identity by referral code: %w", err)
	}
	return &id, nil
}

// SetLinkToken stores a fresh link token and its expiry. Overwriting a prior
// unexpired token is allowed; the old value simply stops matching.
func (s *IdentityStore) SetLinkToken(ctx context.Context, telegramID int64, token string, expiresAt time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Identity{}).
		Where("telegram_id = ?", telegramID).
		Updates(map[string]interface{}{
			"link_token":            token,
			"link_token_expires_at": expiresAt,
		})
	if res.Error != nil {
		return fmt.Errorf("set link token for %d: %w", telegramID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoRows
	}
	return nil
}

// BindWallet binds the wallet address to whichever identity still holds the
// token, clearing the token and its expiry in the same UPDATE. The returned
// bool reports whether the row matched; a false return means the token was
// already consumed or overwritten.
func (s *IdentityStore) BindWallet(ctx context.Context, token, address string, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Identity{}).
		Where("link_token = ?", token).
		Updates(map[string]interface{}{
			"wallet_address":        address,
			"linked_at":             now,
			"link_token":            nil,
			"link_token_expires_at": nil,
		})
	if res.Error != nil {
		return false, fmt.Errorf("bind wallet: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// ClearWallet detaches the bound wallet. Reports whether anything was bound.
func (s *IdentityStore) ClearWallet(ctx context.Context, telegramID int64) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Identity{}).
		Where("telegram_id = ? AND wallet_address IS NOT NULL", telegramID).
		Updates(map[string]interface{}{
			"wallet_address": nil,
			"linked_at":      nil,
		})
	if res.Error != nil {
		return false, fmt.Errorf("clear wallet for %d: %w", telegramID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *IdentityStore) SetNotify(ctx context.Context, telegramID int64, enabled bool) error {
	res := s.db.WithContext(ctx).Model(&models.Identity{}).
		Where("telegram_id = ?", telegramID).
		Update("notify_enabled", enabled)
	if res.Error != nil {
		return fmt.Errorf("set notify for %d: %w", telegramID, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoRows
	}
	return nil
}

// SetReferrer records who referred this identity. Conditional on the field
// still being unset, so a second /start with another code is a no-op.
func (s *IdentityStore) SetReferrer(ctx context.Context, referredID, referrerID int64) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.Identity{}).
		Where("telegram_id = ? AND referred_by IS NULL", referredID).
		Update("referred_by", referrerID)
	if res.Error != nil {
		return false, fmt.Errorf("set referrer for %d: %w", referredID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func newReferralCode() string {
	buf := make([]byte, 5)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the process is in no state to run.
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return hex.EncodeToString(buf)
}
