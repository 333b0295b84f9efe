package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet is the single money account of a user. Balances never go negative;
// rows are never deleted.
type Wallet struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"uniqueIndex;not null" json:"user_id"`
	Balance       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance"`
	EscrowBalance decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"escrow_balance"`
	TotalEarned   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total_earned"`
	Currency      string          `gorm:"size:3;not null" json:"currency"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}
