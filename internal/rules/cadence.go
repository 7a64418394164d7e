package rules

import (
	"time"

	"knot-go/internal/model"
)

// ValidateCadenceDays checks that days is within 1..model.MaxCadenceDays.
func ValidateCadenceDays(days int) error {
	return model.ValidateCadence(days)
}

// ScheduleNext returns anchor plus cadenceDays calendar days, or now when
// that instant has already passed.
func ScheduleNext(now, anchor time.Time, cadenceDays int) (time.Time, error) {
	if err := ValidateCadenceDays(cadenceDays); err != nil {
		return time.Time{}, err
	}
	next := anchor.AddDate(0, 0, cadenceDays)
	if next.Before(now) {
		return now, nil
	}
	return next, nil
}

// NextTouchpointAfterTouch computes a contact's touchpoint after an
// interaction. With reschedule requested and a cadence set, the result is
// anchored at max(now, occurredAt); otherwise existing is returned as is.
func NextTouchpointAfterTouch(now, occurredAt time.Time, cadenceDays *int, reschedule bool, existing *time.Time) (*time.Time, error) {
	if !reschedule || cadenceDays == nil {
		return existing, nil
	}
	anchor := now
	if occurredAt.After(now) {
		anchor = occurredAt
	}
	next, err := ScheduleNext(now, anchor, *cadenceDays)
	if err != nil {
		return nil, err
	}
	return &next, nil
}
