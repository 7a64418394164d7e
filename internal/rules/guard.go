package rules

import (
	"fmt"
	"time"
)

// Precision records how much of a timestamp the user typed.
type Precision int

const (
	PrecisionSecond Precision = iota
	PrecisionMinute
	PrecisionDate
)

func (p Precision) String() string {
	switch p {
	case PrecisionMinute:
		return "minute"
	case PrecisionDate:
		return "date"
	default:
		return "second"
	}
}

// SchedulingGuardError is returned when a requested touchpoint resolves to
// an instant before now.
type SchedulingGuardError struct {
	Requested time.Time
	Now       time.Time
}

func (e *SchedulingGuardError) Error() string {
	return fmt.Sprintf("next touchpoint %s is in the past (now %s)",
		e.Requested.Format(time.RFC3339), e.Now.Format(time.RFC3339))
}

// EnsureFuture checks a user-supplied touchpoint and returns the instant to
// store.
//
//   - PrecisionSecond: t must not be before now.
//   - PrecisionMinute: any instant in the current minute is accepted and
//     clamped to now.
//   - PrecisionDate: t names a local date; it resolves to 23:59:59 of that
//     date and is rejected only when the date is before today.
func EnsureFuture(now, t time.Time, precision Precision, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	switch precision {
	case PrecisionMinute:
		if t.Before(now.Truncate(time.Minute)) {
			return time.Time{}, &SchedulingGuardError{Requested: t, Now: now}
		}
		if t.Before(now) {
			return now, nil
		}
		return t, nil
	case PrecisionDate:
		ty, tm, td := t.In(loc).Date()
		ny, nm, nd := now.In(loc).Date()
		day := time.Date(ty, tm, td, 0, 0, 0, 0, loc)
		if day.Before(time.Date(ny, nm, nd, 0, 0, 0, 0, loc)) {
			return time.Time{}, &SchedulingGuardError{Requested: t, Now: now}
		}
		return EndOfDay(day, loc), nil
	default:
		if t.Before(now) {
			return time.Time{}, &SchedulingGuardError{Requested: t, Now: now}
		}
		return t, nil
	}
}

// EndOfDay returns 23:59:59 of t's local date.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 23, 59, 59, 0, loc)
}
