package model

import (
	"time"
)

// PasswordReset records a temporary password issued by the recovery
// flow. The temporary password itself is only sent by email; the row
// keeps its bcrypt hash. A row is single-use and expires after 24 hours.
type PasswordReset struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;index" json:"user_id"`
	Email            string    `gorm:"size:255;not null;index" json:"email"`
	TempPasswordHash string    `gorm:"size:255;not null" json:"-"`
	ExpiresAt        time.Time `gorm:"not null" json:"expires_at"`
	Used             bool      `gorm:"default:false" json:"used"`
	CreatedAt        time.Time `json:"created_at"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (PasswordReset) TableName() string {
	return "password_resets"
}
