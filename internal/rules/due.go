// Package rules holds the scheduling rules: due-state classification,
// cadence rescheduling, the reschedule guard, annual dates and loop policies.
// Every function takes now and the local zone as parameters.
package rules

import (
	"fmt"
	"time"
)

// MaxSoonDays bounds the soon window.
const MaxSoonDays = 3650

// DueState classifies how urgently a contact needs outreach.
type DueState int

const (
	Unscheduled DueState = iota
	Overdue
	Today
	Soon
	Scheduled
)

var dueStateNames = [...]string{
	Unscheduled: "unscheduled",
	Overdue:     "overdue",
	Today:       "today",
	Soon:        "soon",
	Scheduled:   "scheduled",
}

func (s DueState) String() string {
	if s < Unscheduled || s > Scheduled {
		return fmt.Sprintf("DueState(%d)", int(s))
	}
	return dueStateNames[s]
}

// MarshalText emits the stable enum string.
func (s DueState) MarshalText() ([]byte, error) {
	if s < Unscheduled || s > Scheduled {
		return nil, fmt.Errorf("unknown due state %d", int(s))
	}
	return []byte(dueStateNames[s]), nil
}

func (s *DueState) UnmarshalText(b []byte) error {
	for i, name := range dueStateNames {
		if string(b) == name {
			*s = DueState(i)
			return nil
		}
	}
	return fmt.Errorf("unknown due state %q", string(b))
}

// DueSelector is the value of a due: filter token.
type DueSelector string

const (
	SelectOverdue DueSelector = "overdue"
	SelectToday   DueSelector = "today"
	SelectSoon    DueSelector = "soon"
	SelectAny     DueSelector = "any"
	SelectNone    DueSelector = "none"
)

// ParseDueSelector accepts exactly the five selector words.
func ParseDueSelector(s string) (DueSelector, bool) {
	switch DueSelector(s) {
	case SelectOverdue, SelectToday, SelectSoon, SelectAny, SelectNone:
		return DueSelector(s), true
	}
	return "", false
}

// DayBounds are the local-day boundaries used by classification and queries.
type DayBounds struct {
	StartOfToday    time.Time
	StartOfTomorrow time.Time
	SoonEnd         time.Time
}

// DayBoundsAt computes the bounds for the local day containing now. Day
// arithmetic is on calendar days so DST transitions keep midnights aligned.
// soonDays is clamped to 0..MaxSoonDays; callers validate it at load time.
func DayBoundsAt(now time.Time, soonDays int, loc *time.Location) DayBounds {
	if loc == nil {
		loc = time.Local
	}
	soonDays = min(max(soonDays, 0), MaxSoonDays)

	y, m, d := now.In(loc).Date()
	return DayBounds{
		StartOfToday:    time.Date(y, m, d, 0, 0, 0, 0, loc),
		StartOfTomorrow: time.Date(y, m, d+1, 0, 0, 0, 0, loc),
		SoonEnd:         time.Date(y, m, d+1+soonDays, 0, 0, 0, 0, loc),
	}
}

// Classify returns the due state of next relative to now. Anything before
// now is Overdue, even when it falls on today's date.
func Classify(now time.Time, next *time.Time, soonDays int, loc *time.Location) DueState {
	if next == nil {
		return Unscheduled
	}
	return DayBoundsAt(now, soonDays, loc).Classify(now, *next)
}

// Classify is Classify with precomputed bounds.
func (b DayBounds) Classify(now, next time.Time) DueState {
	switch {
	case next.Before(now):
		return Overdue
	case next.Before(b.StartOfTomorrow):
		return Today
	case next.Before(b.SoonEnd):
		return Soon
	default:
		return Scheduled
	}
}

// ValidateSoonDays checks that days is within 0..MaxSoonDays.
func ValidateSoonDays(days int) error {
	if days < 0 || days > MaxSoonDays {
		return fmt.Errorf("due soon days %d out of range 0..%d", days, MaxSoonDays)
	}
	return nil
}
