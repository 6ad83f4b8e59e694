package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"walletbridge/agent/internal/models"
)

// TicketStore appends support tickets. Status transitions live in external
// support tooling, so this store only ever inserts.
type TicketStore struct {
	db *gorm.DB
}

func NewTicketStore(db *gorm.DB) *TicketStore {
	return &TicketStore{db: db}
}

func (s *TicketStore) Create(ctx context.Context, ownerID int64, body string) (*models.SupportTicket, error) {
	ticket := models.SupportTicket{
		OwnerID: ownerID,
		Body:    body,
		Status:  "open",
	}
	if err := s.db.WithContext(ctx).Create(&ticket).Error; err != nil {
		return nil, fmt.Errorf("create support ticket for %d: %w", ownerID, err)
	}
	return &ticket, nil
}
