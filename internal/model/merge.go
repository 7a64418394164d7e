package model

import (
	"strings"
	"time"
)

// Merge candidate status values.
const (
	MergeOpen      = "open"
	MergeMerged    = "merged"
	MergeDismissed = "dismissed"
)

// ReasonNameDuplicate marks candidates found by the same-name scan.
const ReasonNameDuplicate = "name-duplicate"

// MergeCandidate is a pair of contacts that may be the same person. The pair
// is stored ordered, ContactAID < ContactBID.
type MergeCandidate struct {
	ID                 string
	CreatedAt          time.Time
	Status             string
	Reason             string
	Source             *string
	ContactAID         string
	ContactBID         string
	PreferredContactID *string
	ResolvedAt         *time.Time
}

// NewMergeCandidate creates an open candidate for two distinct contacts.
func NewMergeCandidate(id, a, b, reason string, now time.Time) (*MergeCandidate, error) {
	if a == b {
		return nil, invalid("merge candidate", a, ErrSelfMerge)
	}
	if b < a {
		a, b = b, a
	}
	return &MergeCandidate{
		ID:         id,
		CreatedAt:  now,
		Status:     MergeOpen,
		Reason:     reason,
		ContactAID: a,
		ContactBID: b,
	}, nil
}

// Open reports whether the candidate still awaits a decision.
func (m *MergeCandidate) Open() bool {
	return m.Status == MergeOpen
}

// Involves reports whether id is one side of the pair.
func (m *MergeCandidate) Involves(id string) bool {
	return m.ContactAID == id || m.ContactBID == id
}

// ParseMergeStatus accepts open, merged or dismissed.
func ParseMergeStatus(raw string) (string, error) {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case MergeOpen, MergeMerged, MergeDismissed:
		return s, nil
	default:
		return "", invalid("merge status", raw, ErrInvalidMergeStatus)
	}
}

// NormalizeDisplayName collapses runs of whitespace and lowercases name, the
// key contacts are grouped by when looking for duplicates.
func NormalizeDisplayName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
