package util

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ValidateYear accepts a four digit calendar year.
func ValidateYear(year int) error {
	if year < 1900 || year > 9999 {
		return fmt.Errorf("invalid year %d", year)
	}
	return nil
}

// ValidateMonth accepts 1-12.
func ValidateMonth(month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("invalid month %d", month)
	}
	return nil
}

// ValidateDay accepts 1-31. Month lengths are not checked.
func ValidateDay(day int) error {
	if day < 1 || day > 31 {
		return fmt.Errorf("invalid day %d", day)
	}
	return nil
}

// ValidateAmountCents requires a positive amount below 1e10 cents.
func ValidateAmountCents(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	if amount >= 10_000_000_000 {
		return fmt.Errorf("amount too large, got %d", amount)
	}
	return nil
}

// NormalizeName trims a donor name and removes all whitespace inside it,
// so "Kim  Min Su" and "KimMinSu" resolve to the same member.
func NormalizeName(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(raw))
}

// FormatCents renders cents as a dollar string with thousands separators,
// e.g. 123456 -> "$1,234.56".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	whole := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return fmt.Sprintf("%s$%s.%02d", sign, b.String(), cents%100)
}

// Pad2 zero-pads to two digits.
func Pad2(n int) string {
	return fmt.Sprintf("%02d", n)
}
