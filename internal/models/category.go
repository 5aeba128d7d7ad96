package models

import (
	"fmt"

	"gorm.io/gorm"
)

// Range separates income-type categories from income-method categories.
type Range string

const (
	RangeIncomeType   Range = "inc"
	RangeIncomeMethod Range = "imd"
)

// ParseRange accepts only the two known ranges.
func ParseRange(s string) (Range, error) {
	switch Range(s) {
	case RangeIncomeType, RangeIncomeMethod:
		return Range(s), nil
	}
	return "", fmt.Errorf("unknown category range %q", s)
}

// Category is a named classification shown in one of the two selection lists.
type Category struct {
	ID     uint    `gorm:"primaryKey"`
	Name   string  `gorm:"size:64;not null"`
	Detail *string `gorm:"size:255"`
	Order  *int    `gorm:"column:sort_order"` // nil sorts last
	Range  Range   `gorm:"column:ctg_range;size:8;index;not null"`
}

// BeforeSave keeps free-text ranges out of the table.
func (c *Category) BeforeSave(tx *gorm.DB) error {
	if _, err := ParseRange(string(c.Range)); err != nil {
		return err
	}
	return nil
}
