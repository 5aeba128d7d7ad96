package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Income is one donation event. Amount is in cents so sums never touch
// floating point.
type Income struct {
	ID       uint    `gorm:"primaryKey"`
	Year     int     `gorm:"not null;index:idx_income_ymd,priority:1;uniqueIndex:idx_income_dedup,priority:1"`
	Month    int     `gorm:"not null;index:idx_income_ymd,priority:2;uniqueIndex:idx_income_dedup,priority:2"`
	Day      int     `gorm:"not null;index:idx_income_ymd,priority:3;uniqueIndex:idx_income_dedup,priority:3"`
	Quarter  int     `gorm:"not null"`
	Amount   int64   `gorm:"not null;uniqueIndex:idx_income_dedup,priority:7"`
	TypeID   *uint   `gorm:"index;uniqueIndex:idx_income_dedup,priority:5"`
	MethodID *uint   `gorm:"index;uniqueIndex:idx_income_dedup,priority:6"`
	Notes    *string `gorm:"type:text"`
	MemberID *uint   `gorm:"index;uniqueIndex:idx_income_dedup,priority:4"`

	CreatedAt time.Time `gorm:"index"`

	Type   *Category `gorm:"foreignKey:TypeID;constraint:OnDelete:SET NULL"`
	Method *Category `gorm:"foreignKey:MethodID;constraint:OnDelete:SET NULL"`
	Member *Member   `gorm:"constraint:OnDelete:SET NULL"`
}

var ErrNegativeAmount = errors.New("income amount must not be negative")

// QuarterOf returns ceil(month/3).
func QuarterOf(month int) int {
	return (month + 2) / 3
}

// BeforeSave derives Quarter from Month so the two never disagree.
func (i *Income) BeforeSave(tx *gorm.DB) error {
	if i.Amount < 0 {
		return ErrNegativeAmount
	}
	i.Quarter = QuarterOf(i.Month)
	return nil
}

// IncomeListRow is the read projection backed by the income_list view:
// an income joined with its donor and category names.
type IncomeListRow struct {
	ID        uint      `gorm:"column:id" json:"id"`
	Year      int       `gorm:"column:year" json:"year"`
	Month     int       `gorm:"column:month" json:"month"`
	Day       int       `gorm:"column:day" json:"day"`
	Quarter   int       `gorm:"column:quarter" json:"quarter"`
	Amount    int64     `gorm:"column:amount" json:"amount"`
	Notes     *string   `gorm:"column:notes" json:"notes"`
	MemberID  *uint     `gorm:"column:member_id" json:"memberId"`
	Name      *string   `gorm:"column:name" json:"name"`
	TypeID    *uint     `gorm:"column:type_id" json:"typeId"`
	Type      *string   `gorm:"column:type" json:"type"`
	MethodID  *uint     `gorm:"column:method_id" json:"methodId"`
	Method    *string   `gorm:"column:method" json:"method"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (IncomeListRow) TableName() string { return "income_list" }
