package model

import (
	"strings"
	"time"
)

// KindCase enumerates the named interaction kinds.
type KindCase int

const (
	KindCall KindCase = iota
	KindText
	KindHangout
	KindEmail
	KindTelegram
	KindOther
)

var kindNames = map[KindCase]string{
	KindCall:     "call",
	KindText:     "text",
	KindHangout:  "hangout",
	KindEmail:    "email",
	KindTelegram: "telegram",
}

// InteractionKind is a closed set of named kinds plus Other(label).
// The zero value is a call.
type InteractionKind struct {
	Case  KindCase
	Label string // only set for KindOther
}

// Named kinds.
var (
	Call     = InteractionKind{Case: KindCall}
	Text     = InteractionKind{Case: KindText}
	Hangout  = InteractionKind{Case: KindHangout}
	Email    = InteractionKind{Case: KindEmail}
	Telegram = InteractionKind{Case: KindTelegram}
)

// OtherKind builds a free-form kind. The label is trimmed and lowercased.
func OtherKind(label string) (InteractionKind, error) {
	l := strings.ToLower(strings.TrimSpace(label))
	if l == "" {
		return InteractionKind{}, invalid("kind", label, ErrEmptyKindLabel)
	}
	return InteractionKind{Case: KindOther, Label: l}, nil
}

// ParseInteractionKind maps user input to a kind. Unknown words become
// Other(word).
func ParseInteractionKind(raw string) (InteractionKind, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for c, name := range kindNames {
		if s == name {
			return InteractionKind{Case: c}, nil
		}
	}
	return OtherKind(s)
}

// String returns the human label of the kind.
func (k InteractionKind) String() string {
	if k.Case == KindOther {
		return k.Label
	}
	return kindNames[k.Case]
}

// Interaction is a timestamped history entry attached to one contact.
type Interaction struct {
	ID         string
	ContactID  string
	OccurredAt time.Time
	CreatedAt  time.Time
	Kind       InteractionKind
	Note       string
	FollowUpAt *time.Time
}

// FutureTolerance is how far ahead of now an interaction may be dated
// before it is reported as suspicious.
const FutureTolerance = 24 * time.Hour

// OccursFarInFuture reports whether occurredAt is beyond FutureTolerance.
func (i *Interaction) OccursFarInFuture(now time.Time) bool {
	return i.OccurredAt.After(now.Add(FutureTolerance))
}
