package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Payment struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ProjectID        uint            `gorm:"not null;index" json:"project_id"`
	FromUserID       uint            `gorm:"not null;index" json:"from_user_id"`
	ToUserID         uint            `gorm:"not null;index" json:"to_user_id"`
	Type             string          `gorm:"size:20;not null" json:"type"`         // MILESTONE, FINAL, REFUND
	Status           string          `gorm:"size:20;not null;index" json:"status"` // PENDING, ESCROW_HOLD, RELEASED, REFUNDED, FAILED
	Amount           decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Fee              decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"fee"`
	NetAmount        decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"net_amount"`
	Method           string          `gorm:"size:20;not null" json:"method"`
	IsEscrow         bool            `gorm:"not null;default:true" json:"is_escrow"`
	RefundReason     string          `gorm:"size:255" json:"refund_reason,omitempty"`
	EscrowFundedAt   *time.Time      `json:"escrow_funded_at"`
	EscrowReleasedAt *time.Time      `json:"escrow_released_at"`
	CompletedAt      *time.Time      `json:"completed_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
