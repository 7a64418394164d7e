package model

import (
	"strings"
	"time"
)

// DateKind classifies a ContactDate.
type DateKind string

const (
	DateBirthday DateKind = "birthday"
	DateNameDay  DateKind = "name_day"
	DateCustom   DateKind = "custom"
)

// ParseDateKind accepts the canonical names plus "nameday" and "name-day".
func ParseDateKind(raw string) (DateKind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "birthday":
		return DateBirthday, nil
	case "nameday", "name-day", "name_day":
		return DateNameDay, nil
	case "custom":
		return DateCustom, nil
	default:
		return "", invalid("date kind", raw, ErrInvalidKind)
	}
}

// ContactDate is an annual recurring date.
type ContactDate struct {
	ID        string
	ContactID string
	Kind      DateKind
	Label     *string
	Month     int
	Day       int
	Year      *int
	CreatedAt time.Time
	UpdatedAt time.Time
	Source    *string
}

// Validate checks label, month, day and year. Feb 29 is accepted when no
// year is given.
func (d *ContactDate) Validate() error {
	if d.Label != nil {
		d.Label = OptionalString(*d.Label)
	}
	if d.Kind == DateCustom && d.Label == nil {
		return invalid("label", nil, ErrMissingDateLabel)
	}
	switch d.Kind {
	case DateBirthday, DateNameDay, DateCustom:
	default:
		return invalid("date kind", string(d.Kind), ErrInvalidKind)
	}
	if d.Year != nil && (*d.Year < 1 || *d.Year > 9999) {
		return invalid("year", *d.Year, ErrInvalidYear)
	}
	return ValidateMonthDay(d.Month, d.Day, d.Year)
}

// ValidateMonthDay checks that day exists in month. Without a year, a leap
// year is assumed.
func ValidateMonthDay(month, day int, year *int) error {
	if month < 1 || month > 12 {
		return invalid("month", month, ErrInvalidMonth)
	}
	y := 2000
	if year != nil {
		y = *year
	}
	if day < 1 || day > daysIn(time.Month(month), y) {
		return invalid("day", day, ErrInvalidDay)
	}
	return nil
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
