package model

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string // account permission level

const (
	RoleUser      UserRole = "user"
	RoleModerator UserRole = "moderator"
	RoleAdmin     UserRole = "admin"
)

type UserStatus string // account standing

const (
	StatusActive    UserStatus = "active"
	StatusBlocked   UserStatus = "blocked"
	StatusSuspended UserStatus = "suspended"
)

type User struct {
	ID           uint           `gorm:"primarykey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"`
	Name         string         `gorm:"not null" json:"name"`
	Telegram     string         `json:"telegram,omitempty"` // contact handle shown on listings
	Avatar       string         `json:"avatar,omitempty"`
	Status       UserStatus     `gorm:"type:varchar(20);default:'active'" json:"status"`
	Role         UserRole       `gorm:"type:varchar(20);default:'user'" json:"role"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"` // soft delete
}

func (User) TableName() string {
	return "users"
}

// IsActive reports whether the account may log in and request password resets
func (u *User) IsActive() bool {
	return u.Status == "" || u.Status == StatusActive
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
