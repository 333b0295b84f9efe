package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Bid struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	ProjectID    uint            `gorm:"not null;index" json:"project_id"`
	FreelancerID uint            `gorm:"not null;index" json:"freelancer_id"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Status       string          `gorm:"size:20;not null;index" json:"status"` // PENDING, ACCEPTED, REJECTED
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (Bid) TableName() string {
	return "bids"
}
