package model

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format used by the data providers.
const DateLayout = "2006-01-02"

// Date is a calendar day, stored as days since 1970-01-01 (UTC).
type Date int32

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	// midnight UTC is an exact multiple of a day, so the division is exact
	return Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the day.
func (d Date) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

// AddDays returns the date n calendar days later (n may be negative).
func (d Date) AddDays(n int) Date {
	return d + Date(n)
}

// DaysSince returns d - other in calendar days.
func (d Date) DaysSince(other Date) int {
	return int(d - other)
}

func (d Date) String() string {
	return d.Time().Format(DateLayout)
}
