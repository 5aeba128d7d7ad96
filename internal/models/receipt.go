package models

import "time"

// Receipt records that a tax receipt was issued to a member for a year.
// Re-issuing keeps the serial.
type Receipt struct {
	ID         uint      `gorm:"primaryKey"`
	MemberID   uint      `gorm:"not null;uniqueIndex:idx_receipt_member_year,priority:1"`
	Year       int       `gorm:"not null;uniqueIndex:idx_receipt_member_year,priority:2;index"`
	Serial     string    `gorm:"size:36;uniqueIndex;not null"`
	TotalCents int64     `gorm:"not null"`
	IssuedAt   time.Time `gorm:"not null"`

	Member Member `gorm:"constraint:OnDelete:CASCADE"`
}
