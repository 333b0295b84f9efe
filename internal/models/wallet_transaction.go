package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one append-only ledger row. BalanceBefore/BalanceAfter describe
// the sub-balance named by Ledger (BALANCE or ESCROW).
type Transaction struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	WalletID      uint            `gorm:"not null;index" json:"wallet_id"`
	UserID        uint            `gorm:"not null;index" json:"user_id"`
	Type          string          `gorm:"size:20;not null;index" json:"type"`
	Status        string          `gorm:"size:20;not null" json:"status"`
	Ledger        string          `gorm:"size:10;not null" json:"ledger"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Description   string          `gorm:"size:255" json:"description"`
	ReferenceID   string          `gorm:"size:64;index" json:"reference_id"`
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance_before"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance_after"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	CompletedAt   *time.Time      `json:"completed_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
