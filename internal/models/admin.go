package models

import "time"

// Admin is a principal allowed to sign in to the portal. Admins are created
// by the provisioning CLI, never by request handlers.
type Admin struct {
	ID           uint   `gorm:"primaryKey"`
	Email        string `gorm:"size:255;uniqueIndex;not null"` // stored lower-cased
	Name         string `gorm:"size:128"`
	PasswordHash string `gorm:"size:255;not null"`
	IsActive     bool   `gorm:"not null;default:true"`
	Role         string `gorm:"size:32;not null;default:admin"`
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
