package repository

import (
	"context"
	"errors"
	"fmt"

	"gigwallet/internal/domain"
	"gigwallet/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentRepository) GetByID(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("payment", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) LockByID(ctx context.Context, id uint) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("payment", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// HasActiveForProject reports whether the project already has a payment in
// one of domain.ActivePaymentStatuses.
func (r *PaymentRepository) HasActiveForProject(ctx context.Context, projectID uint) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("project_id = ? AND status IN ?", projectID, domain.ActivePaymentStatuses).
		Count(&n).Error
	return n > 0, err
}

func (r *PaymentRepository) ListByProjectID(ctx context.Context, projectID uint) ([]models.Payment, error) {
	var list []models.Payment
	err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at DESC").Order("id DESC").Find(&list).Error
	return list, err
}

// Update saves p unless the stored row is already terminal.
func (r *PaymentRepository) Update(ctx context.Context, p *models.Payment) error {
	var stored []string
	err := r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", p.ID).Pluck("status", &stored).Error
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return domain.NotFound("payment", p.ID)
	}
	if domain.IsTerminalPaymentStatus(stored[0]) {
		return fmt.Errorf("%w: payment %d is %s", domain.ErrInvalidStateTransition, p.ID, stored[0])
	}
	return r.db.WithContext(ctx).Save(p).Error
}
