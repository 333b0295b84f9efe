package repository

import (
	"context"
	"errors"
	"sort"

	"gigwallet/internal/domain"
	"gigwallet/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// WithTx returns a repository bound to an open transaction.
func (r *WalletRepository) WithTx(tx *gorm.DB) *WalletRepository {
	return &WalletRepository{db: tx}
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID uint) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("wallet for user", userID)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepository) GetByID(ctx context.Context, id uint) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.WithContext(ctx).First(&w, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("wallet", id)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// LockByID reads the wallet with a row lock held until the surrounding
// transaction ends. Must be called on a transaction-bound repository.
func (r *WalletRepository) LockByID(ctx context.Context, id uint) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&w, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("wallet", id)
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// LockByIDs locks the given wallets one at a time in ascending ID order, the
// global order every multi-wallet operation uses.
func (r *WalletRepository) LockByIDs(ctx context.Context, ids ...uint) (map[uint]*models.Wallet, error) {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	out := make(map[uint]*models.Wallet, len(sorted))
	for _, id := range sorted {
		if _, ok := out[id]; ok {
			continue
		}
		w, err := r.LockByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = w
	}
	return out, nil
}

// CreateIfAbsent inserts w unless a wallet for w.UserID already exists, then
// loads whichever row won into w.
func (r *WalletRepository) CreateIfAbsent(ctx context.Context, w *models.Wallet) (created bool, err error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(w)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 && w.ID != 0 {
		return true, nil
	}
	existing, err := r.GetByUserID(ctx, w.UserID)
	if err != nil {
		return false, err
	}
	*w = *existing
	return false, nil
}

// SaveBalances persists the three balance columns of w.
func (r *WalletRepository) SaveBalances(ctx context.Context, w *models.Wallet) error {
	return r.db.WithContext(ctx).Model(w).Updates(map[string]interface{}{
		"balance":        w.Balance,
		"escrow_balance": w.EscrowBalance,
		"total_earned":   w.TotalEarned,
	}).Error
}

// FindInBatches walks all wallets in ID order.
func (r *WalletRepository) FindInBatches(ctx context.Context, size int, fn func(batch []models.Wallet) error) error {
	var batch []models.Wallet
	return r.db.WithContext(ctx).FindInBatches(&batch, size, func(tx *gorm.DB, _ int) error {
		return fn(batch)
	}).Error
}
