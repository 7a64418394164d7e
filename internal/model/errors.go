package model

import (
	"errors"
	"fmt"
)

// Validation failures. Each is wrapped in a *ValidationError naming the field.
var (
	ErrEmptyDisplayName      = errors.New("display name is required")
	ErrInvalidCadence        = errors.New("cadence days out of range")
	ErrInvalidTimezone       = errors.New("unknown timezone")
	ErrDuplicateEmail        = errors.New("email already belongs to another contact")
	ErrInvalidEmail          = errors.New("email is empty")
	ErrInvalidPhone          = errors.New("phone has no digits")
	ErrMultiplePrimaryEmails = errors.New("more than one primary email")
	ErrEmptyKindLabel        = errors.New("interaction kind label is empty")
	ErrInvalidKind           = errors.New("unknown kind")
	ErrMissingDateLabel      = errors.New("label is required for custom dates")
	ErrInvalidMonth          = errors.New("month out of range")
	ErrInvalidDay            = errors.New("day is not valid for month")
	ErrInvalidYear           = errors.New("year out of range")
	ErrSelfMerge             = errors.New("cannot merge a contact with itself")
	ErrInvalidMergeStatus    = errors.New("unknown merge status")
	ErrInvalidMergeOption    = errors.New("unknown merge option")
)

// ErrEmptyAfterNormalization is matched by every *NormalizationError.
var ErrEmptyAfterNormalization = errors.New("tag is empty after normalization")

// ValidationError reports a violated entity invariant.
type ValidationError struct {
	Field string
	Value any
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("invalid %s %v: %v", e.Field, e.Value, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, value any, err error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Err: err}
}

// NormalizationError is returned when a tag name normalizes to nothing.
type NormalizationError struct {
	Input string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("invalid tag %q: %v", e.Input, ErrEmptyAfterNormalization)
}

func (e *NormalizationError) Unwrap() error { return ErrEmptyAfterNormalization }
