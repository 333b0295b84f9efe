package repository

import (
	"context"
	"errors"

	"gigwallet/internal/domain"
	"gigwallet/internal/models"

	"gorm.io/gorm"
)

type BidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) *BidRepository {
	return &BidRepository{db: db}
}

func (r *BidRepository) Create(b *models.Bid) error {
	return r.db.Create(b).Error
}

// FindAcceptedBid returns the accepted bid on a project, if any.
func (r *BidRepository) FindAcceptedBid(ctx context.Context, projectID uint) (*models.Bid, error) {
	var b models.Bid
	err := r.db.WithContext(ctx).Where("project_id = ? AND status = ?", projectID, domain.BidStatusAccepted).
		Order("id DESC").First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("accepted bid for project", projectID)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
