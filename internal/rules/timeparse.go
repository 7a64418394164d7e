package rules

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"knot-go/internal/model"
)

var (
	ErrEmptyTimestamp  = errors.New("timestamp cannot be empty")
	ErrInvalidDateTime = errors.New("invalid datetime: expected YYYY-MM-DD, YYYY-MM-DD HH:MM, or YYYY-MM-DD HH:MM:SS (T separator allowed)")
	ErrInvalidDateForm = errors.New("invalid date: expected YYYY-MM-DD, YYYYMMDD, MM-DD, --MMDD, or --MM-DD")
)

const dateLayout = "2006-01-02"

var (
	secondLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05"}
	minuteLayouts = []string{"2006-01-02 15:04", "2006-01-02T15:04"}
)

// ParseLocalTimestamp reads a wall-clock timestamp in loc and reports the
// precision the user typed.
func ParseLocalTimestamp(input string, loc *time.Location) (time.Time, Precision, error) {
	if loc == nil {
		loc = time.Local
	}
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, 0, ErrEmptyTimestamp
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, PrecisionDate, nil
	}
	for _, layout := range secondLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, PrecisionSecond, nil
		}
	}
	for _, layout := range minuteLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, PrecisionMinute, nil
		}
	}
	return time.Time{}, 0, ErrInvalidDateTime
}

// ParseDateParts reads an annual date. The year is nil for the MM-DD,
// --MMDD and --MM-DD forms.
func ParseDateParts(input string) (month, day int, year *int, err error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, 0, nil, ErrEmptyTimestamp
	}

	if t, perr := time.Parse(dateLayout, s); perr == nil {
		y := t.Year()
		return int(t.Month()), t.Day(), &y, nil
	}

	if len(s) == 8 && allDigits(s) {
		y, _ := strconv.Atoi(s[0:4])
		m, _ := strconv.Atoi(s[4:6])
		d, _ := strconv.Atoi(s[6:8])
		if err := model.ValidateMonthDay(m, d, &y); err != nil {
			return 0, 0, nil, err
		}
		return m, d, &y, nil
	}

	var mm, dd string
	if rest, ok := strings.CutPrefix(s, "--"); ok {
		switch {
		case len(rest) == 4 && allDigits(rest):
			mm, dd = rest[0:2], rest[2:4]
		case len(rest) == 5 && rest[2] == '-':
			mm, dd = rest[0:2], rest[3:5]
		default:
			return 0, 0, nil, ErrInvalidDateForm
		}
	} else if a, b, ok := strings.Cut(s, "-"); ok {
		mm, dd = a, b
	} else {
		return 0, 0, nil, ErrInvalidDateForm
	}

	m, merr := strconv.Atoi(mm)
	d, derr := strconv.Atoi(dd)
	if merr != nil || derr != nil {
		return 0, 0, nil, ErrInvalidDateForm
	}
	if err := model.ValidateMonthDay(m, d, nil); err != nil {
		return 0, 0, nil, err
	}
	return m, d, nil, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
