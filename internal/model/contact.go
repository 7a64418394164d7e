package model

import (
	"strings"
	"time"
)

// MaxCadenceDays bounds Contact.CadenceDays.
const MaxCadenceDays = 3650

// Contact is a person being tracked.
type Contact struct {
	ID               string
	DisplayName      string
	Email            *string // primary email, mirrors the primary ContactEmail row
	Phone            *string
	Handle           *string
	Timezone         *string // IANA name
	NextTouchpointAt *time.Time
	CadenceDays      *int
	CreatedAt        time.Time
	UpdatedAt        time.Time
	ArchivedAt       *time.Time
}

// Archived reports whether the contact has been soft-deleted.
func (c *Contact) Archived() bool { return c.ArchivedAt != nil }

// Validate checks the invariants that hold for every stored contact.
// The "touchpoint is not in the past" rule only applies when a caller sets
// the value and is enforced by rules.EnsureFuture at that point.
func (c *Contact) Validate() error {
	if strings.TrimSpace(c.DisplayName) == "" {
		return invalid("display_name", nil, ErrEmptyDisplayName)
	}
	if c.CadenceDays != nil {
		if err := ValidateCadence(*c.CadenceDays); err != nil {
			return err
		}
	}
	if c.Timezone != nil {
		if _, err := time.LoadLocation(*c.Timezone); err != nil {
			return invalid("timezone", *c.Timezone, ErrInvalidTimezone)
		}
	}
	if c.Email != nil {
		if _, ok := NormalizeEmail(*c.Email); !ok {
			return invalid("email", *c.Email, ErrInvalidEmail)
		}
	}
	if c.Phone != nil {
		if _, ok := NormalizePhone(*c.Phone); !ok {
			return invalid("phone", *c.Phone, ErrInvalidPhone)
		}
	}
	return nil
}

// ValidateCadence checks that days is within 1..MaxCadenceDays.
func ValidateCadence(days int) error {
	if days <= 0 || days > MaxCadenceDays {
		return invalid("cadence_days", days, ErrInvalidCadence)
	}
	return nil
}

// NewContact returns a contact with a trimmed name and both lifecycle
// timestamps set to now. Callers fill optional fields and call Validate.
func NewContact(id, displayName string, now time.Time) *Contact {
	return &Contact{
		ID:          id,
		DisplayName: strings.TrimSpace(displayName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// OptionalString trims s and returns nil when nothing is left.
func OptionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ContactEmail is one of a contact's email addresses.
type ContactEmail struct {
	ContactID string
	Email     string
	IsPrimary bool
	CreatedAt time.Time
	Source    *string
}

// NormalizeEmail trims and lowercases an address. ok is false when the
// input is blank.
func NormalizeEmail(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	return strings.ToLower(s), true
}

// ValidateEmails checks a contact's email set: every address normalized,
// no duplicates, at most one primary.
func ValidateEmails(emails []ContactEmail) error {
	seen := make(map[string]bool, len(emails))
	primaries := 0
	for _, e := range emails {
		norm, ok := NormalizeEmail(e.Email)
		if !ok {
			return invalid("email", e.Email, ErrInvalidEmail)
		}
		if seen[norm] {
			return invalid("email", norm, ErrDuplicateEmail)
		}
		seen[norm] = true
		if e.IsPrimary {
			primaries++
		}
	}
	if primaries > 1 {
		return invalid("email", nil, ErrMultiplePrimaryEmails)
	}
	return nil
}

// NormalizePhone reduces a phone number to digits, keeping a leading '+'.
// Anything after an extension marker is dropped. ok is false when no digit
// precedes the marker.
func NormalizePhone(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	var b strings.Builder
	if strings.HasPrefix(s, "+") {
		b.WriteByte('+')
	}
	sawDigit := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			sawDigit = true
			continue
		}
		if strings.ContainsRune("xX#;,", r) {
			break
		}
	}
	if !sawDigit {
		return "", false
	}
	return b.String(), true
}
