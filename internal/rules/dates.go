package rules

import "time"

// OccursToday reports whether an annual month/day falls on now's local date.
// Feb 29 is surfaced on Feb 28 in non-leap years.
func OccursToday(now time.Time, month, day int, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := now.In(loc).Date()
	if int(m) == month && d == day {
		return true
	}
	if month == 2 && day == 29 {
		return m == time.February && d == 28 && !IsLeapYear(y)
	}
	return false
}

// IsLeapYear reports whether year is a Gregorian leap year.
func IsLeapYear(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}
