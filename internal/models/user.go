package models

import (
	"time"

	"gigwallet/internal/domain"
)

// User is the slice of the user directory the ledger needs.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:64;not null" json:"username"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Role      string    `gorm:"size:20;not null;index" json:"role"` // CLIENT | FREELANCER | ADMIN
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) IsClient() bool     { return u.Role == domain.RoleClient }
func (u *User) IsFreelancer() bool { return u.Role == domain.RoleFreelancer }
