package models

import "time"

type Project struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	OwnerUserID uint      `gorm:"not null;index" json:"owner_user_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Status      string    `gorm:"size:20;not null;index" json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Project) TableName() string {
	return "projects"
}
