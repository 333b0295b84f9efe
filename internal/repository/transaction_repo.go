package repository

import (
	"context"

	"gigwallet/internal/models"

	"gorm.io/gorm"
)

// TransactionRepository is append-only: there is no update or delete.
type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) WithTx(tx *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: tx}
}

func (r *TransactionRepository) Create(ctx context.Context, t *models.Transaction) error {
	return r.db.WithContext(ctx).Create(t).Error
}

// ListByWalletID returns the newest transactions first.
func (r *TransactionRepository) ListByWalletID(ctx context.Context, walletID uint, limit, offset int) ([]models.Transaction, error) {
	var list []models.Transaction
	err := r.db.WithContext(ctx).Where("wallet_id = ?", walletID).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

// History returns a wallet's full log in insertion order, for replay.
func (r *TransactionRepository) History(ctx context.Context, walletID uint) ([]models.Transaction, error) {
	var list []models.Transaction
	err := r.db.WithContext(ctx).Where("wallet_id = ?", walletID).Order("id").Find(&list).Error
	return list, err
}
