package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"gigwallet/internal/domain"
	"gigwallet/internal/models"
	"gigwallet/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxDescription matches the size of the description column.
const maxDescription = 255

// TransactionRecorder appends audit rows. It must be bound to the same
// gorm transaction as the wallet write it documents.
type TransactionRecorder struct {
	repo *repository.TransactionRepository
	now  func() time.Time
}

func NewTransactionRecorder(repo *repository.TransactionRepository) *TransactionRecorder {
	return &TransactionRecorder{repo: repo, now: time.Now}
}

func (r *TransactionRecorder) WithTx(tx *gorm.DB) *TransactionRecorder {
	return &TransactionRecorder{repo: r.repo.WithTx(tx), now: r.now}
}

type RecordInput struct {
	Wallet        *models.Wallet
	Type          string
	Ledger        string
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Description   string
	ReferenceID   string
}

// Record persists a COMPLETED transaction. It refuses rows whose before/after
// values do not move by exactly Amount in the direction the type implies.
func (r *TransactionRecorder) Record(ctx context.Context, in RecordInput) (*models.Transaction, error) {
	sign, ok := domain.LedgerDirection(in.Type, in.Ledger)
	if !ok {
		return nil, fmt.Errorf("%w: record %s on %s ledger: unsupported combination", domain.ErrLedgerInvariant, in.Type, in.Ledger)
	}
	delta := in.BalanceAfter.Sub(in.BalanceBefore)
	if !delta.Equal(in.Amount.Mul(decimal.NewFromInt(int64(sign)))) {
		return nil, fmt.Errorf("%w: record %s: balance moved by %s for amount %s", domain.ErrLedgerInvariant, in.Type, delta, in.Amount)
	}
	now := r.now()
	t := &models.Transaction{
		WalletID:      in.Wallet.ID,
		UserID:        in.Wallet.UserID,
		Type:          in.Type,
		Status:        domain.TxStatusCompleted,
		Ledger:        in.Ledger,
		Amount:        in.Amount,
		Description:   truncateRunes(in.Description, maxDescription),
		ReferenceID:   in.ReferenceID,
		BalanceBefore: in.BalanceBefore,
		BalanceAfter:  in.BalanceAfter,
		CreatedAt:     now,
		CompletedAt:   &now,
	}
	if err := r.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
