package model

import (
	"time"
)

// PasswordReset is one issued reset token. A token is valid while
// Used is false and the current time is before ExpiresAt.
type PasswordReset struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"size:255;not null;index" json:"email"`
	Token     string    `gorm:"size:255;not null;uniqueIndex" json:"-"` // never serialized
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Used      bool      `gorm:"not null" json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

func (PasswordReset) TableName() string {
	return "password_reset_tokens"
}

// IsValidAt reports whether the token can still be consumed at now
func (r *PasswordReset) IsValidAt(now time.Time) bool {
	return !r.Used && now.Before(r.ExpiresAt)
}

// ResetTokenStats summarizes the token table
type ResetTokenStats struct {
	Total   int64 `json:"total"`
	Active  int64 `json:"active"`
	Expired int64 `json:"expired"`
	Used    int64 `json:"used"`
}
