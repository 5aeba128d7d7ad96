package models

import "time"

// Backup points at an encrypted ledger snapshot on disk.
type Backup struct {
	ID        uint   `gorm:"primaryKey"`
	AdminID   uint   `gorm:"index;not null"`
	FileName  string `gorm:"size:128;not null"`
	FilePath  string `gorm:"size:512;not null"`
	Size      int64
	CreatedAt time.Time
}
