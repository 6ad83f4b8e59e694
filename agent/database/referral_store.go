package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"walletbridge/agent/internal/models"
)

// ReferralStore owns the referral edges. The referred side is unique at the
// schema level, so a racing double /start can create at most one edge.
type ReferralStore struct {
	db *gorm.DB
}

func NewReferralStore(db *gorm.DB) *ReferralStore {
	return &ReferralStore{db: db}
}

// Create inserts the edge. A unique-constraint violation on referred_id
// surfaces as an error; callers that already checked SetReferrer never see
// one in practice.
func (s *ReferralStore) Create(ctx context.Context, referrerID, referredID int64, now time.Time) (*models.ReferralEdge, error) {
	edge := models.ReferralEdge{
		ReferrerID:  referrerID,
		ReferredID:  referredID,
		Status:      "completed",
		CompletedAt: &now,
	}
	if err := s.db.WithContext(ctx).Create(&edge).Error; err != nil {
		return nil, fmt.Errorf("create referral edge %d -> %d: %w", referrerID, referredID, err)
	}
	return &edge, nil
}

func (s *ReferralStore) CountByReferrer(ctx context.Context, referrerID int64) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.ReferralEdge{}).
		Where("referrer_id = ?", referrerID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count referrals for %d: %w", referrerID, err)
	}
	return count, nil
}
