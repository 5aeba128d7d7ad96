package models

import "time"

// Member is a donor. NameFull holds the normalised name (no whitespace) and
// is the dedup key.
type Member struct {
	ID        uint    `gorm:"primaryKey"`
	NameFull  string  `gorm:"size:128;uniqueIndex;not null"`
	NameFirst *string `gorm:"size:64"`
	NameLast  *string `gorm:"size:64"`
	Email     *string `gorm:"size:255"`
	Address   *string `gorm:"size:255"`
	City      *string `gorm:"size:64"`
	Postal    *string `gorm:"size:16"`
	CreatedAt time.Time
}
