package database

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"walletbridge/agent/internal/models"
)

// AlertStore owns the price_alerts table. MarkTriggered is the conditional
// write the at-most-once trigger guarantee rests on.
type AlertStore struct {
	db *gorm.DB
}

func NewAlertStore(db *gorm.DB) *AlertStore {
	return &AlertStore{db: db}
}

func (s *AlertStore) Create(ctx context.Context, ownerID int64, direction string, target decimal.Decimal) (*models.PriceAlert, error) {
	alert := models.PriceAlert{
		OwnerID:     ownerID,
		Direction:   direction,
		TargetPrice: target,
	}
	if err := s.db.WithContext(ctx).Create(&alert).Error; err != nil {
		return nil, fmt.Errorf("create alert for %d: %w", ownerID, err)
	}
	return &alert, nil
}

// ListActive returns every untriggered alert, oldest first. Triggered rows
// are terminal and never come back from here.
func (s *AlertStore) ListActive(ctx context.Context) ([]models.PriceAlert, error) {
	var alerts []models.PriceAlert
	err := s.db.WithContext(ctx).
		Where("triggered = ?", false).
		Order("id").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("list active alerts: %w", err)
	}
	return alerts, nil
}

func (s *AlertStore) ListActiveByOwner(ctx context.Context, ownerID int64) ([]models.PriceAlert, error) {
	var alerts []models.PriceAlert
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND triggered = ?", ownerID, false).
		Order("id").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("list alerts for %d: %w", ownerID, err)
	}
	return alerts, nil
}

func (s *AlertStore) CountActiveByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.PriceAlert{}).
		Where("owner_id = ? AND triggered = ?", ownerID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count alerts for %d: %w", ownerID, err)
	}
	return count, nil
}

// Delete removes an untriggered alert owned by ownerID. Reports whether a
// row was actually removed.
func (s *AlertStore) Delete(ctx context.Context, ownerID int64, alertID uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("id = ? AND owner_id = ? AND triggered = ?", alertID, ownerID, false).
		Delete(&models.PriceAlert{})
	if res.Error != nil {
		return false, fmt.Errorf("delete alert %d: %w", alertID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// MarkTriggered flips the alert to triggered only if it is still
// untriggered at update time. The returned bool is the at-most-once gate:
// of any number of concurrent sweeps, exactly one sees true.
func (s *AlertStore) MarkTriggered(ctx context.Context, alertID uint, now time.Time) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.PriceAlert{}).
		Where("id = ? AND triggered = ?", alertID, false).
		Updates(map[string]interface{}{
			"triggered":    true,
			"triggered_at": now,
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark alert %d triggered: %w", alertID, res.Error)
	}
	return res.RowsAffected == 1, nil
}
