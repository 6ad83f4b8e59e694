package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"walletbridge/agent/internal/models"
)

// WatchlistStore owns the (owner, address) watchlist pairs.
type WatchlistStore struct {
	db *gorm.DB
}

func NewWatchlistStore(db *gorm.DB) *WatchlistStore {
	return &WatchlistStore{db: db}
}

// Upsert inserts the pair or refreshes the nickname of an existing one.
// Reports whether a new row was created.
func (s *WatchlistStore) Upsert(ctx context.Context, ownerID int64, address, nickname string) (bool, error) {
	var entry models.WatchlistEntry
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND wallet_address = ?", ownerID, address).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		entry = models.WatchlistEntry{
			OwnerID:       ownerID,
			WalletAddress: address,
			Nickname:      nickname,
		}
		if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
			return false, fmt.Errorf("create watchlist entry for %d: %w", ownerID, err)
		}
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load watchlist entry for %d: %w", ownerID, err)
	}

	if entry.Nickname != nickname {
		err := s.db.WithContext(ctx).Model(&entry).Update("nickname", nickname).Error
		if err != nil {
			return false, fmt.Errorf("update watchlist nickname for %d: %w", ownerID, err)
		}
	}
	return false, nil
}

// Delete removes the pair. Reports whether it existed.
func (s *WatchlistStore) Delete(ctx context.Context, ownerID int64, address string) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("owner_id = ? AND wallet_address = ?", ownerID, address).
		Delete(&models.WatchlistEntry{})
	if res.Error != nil {
		return false, fmt.Errorf("delete watchlist entry for %d: %w", ownerID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *WatchlistStore) ListByOwner(ctx context.Context, ownerID int64) ([]models.WatchlistEntry, error) {
	var entries []models.WatchlistEntry
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("list watchlist for %d: %w", ownerID, err)
	}
	return entries, nil
}

func (s *WatchlistStore) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.WatchlistEntry{}).
		Where("owner_id = ?", ownerID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count watchlist for %d: %w", ownerID, err)
	}
	return count, nil
}
