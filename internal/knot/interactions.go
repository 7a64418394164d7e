package knot

import (
	"fmt"
	"strings"
	"time"

	"knot-go/internal/model"
	"knot-go/internal/rules"
)

// TouchKind is the kind recorded by Touch.
const TouchKind = "touch"

// NewInteractionInput holds the raw values for AddInteraction. Blank
// OccurredAt means now; blank Kind means a note of kind "note".
type NewInteractionInput struct {
	ContactID  string
	Kind       string
	Note       string
	OccurredAt string
	FollowUpAt string
}

// AddInteraction records an interaction. With reschedule set and a cadence
// on the contact, the next touchpoint moves to max(now, occurred_at) plus
// the cadence. Interactions dated more than a day ahead are accepted with a
// warning.
func (s *KnotService) AddInteraction(in NewInteractionInput, reschedule bool) (*model.Interaction, error) {
	c, err := s.mustContact(in.ContactID)
	if err != nil {
		return nil, err
	}
	now := s.now()

	kindRaw := in.Kind
	if strings.TrimSpace(kindRaw) == "" {
		kindRaw = "note"
	}
	kind, err := model.ParseInteractionKind(kindRaw)
	if err != nil {
		return nil, err
	}

	occurredAt := now
	if strings.TrimSpace(in.OccurredAt) != "" {
		occurredAt, _, err = rules.ParseLocalTimestamp(in.OccurredAt, s.loc())
		if err != nil {
			return nil, fmt.Errorf("occurred at: %w", err)
		}
	}

	var followUp *time.Time
	if strings.TrimSpace(in.FollowUpAt) != "" {
		t, err := s.parseTouchpoint(in.FollowUpAt, now)
		if err != nil {
			return nil, fmt.Errorf("follow up at: %w", err)
		}
		followUp = &t
	}

	i := &model.Interaction{
		ID:         s.idgen.New(),
		ContactID:  c.ID,
		OccurredAt: occurredAt,
		CreatedAt:  now,
		Kind:       kind,
		Note:       in.Note,
		FollowUpAt: followUp,
	}
	if i.OccursFarInFuture(now) {
		s.logger.Warn("interaction dated in the future", "id", c.ID, "occurred_at", occurredAt)
	}

	next, err := rules.NextTouchpointAfterTouch(now, occurredAt, c.CadenceDays, reschedule, c.NextTouchpointAt)
	if err != nil {
		return nil, err
	}
	var updated *model.Contact
	if next != c.NextTouchpointAt {
		cp := *c
		cp.NextTouchpointAt = next
		cp.UpdatedAt = now
		updated = &cp
	}

	if err := s.database.CreateInteraction(i, updated); err != nil {
		return nil, fmt.Errorf("recording interaction: %w", err)
	}
	s.logger.Info("interaction added", "id", c.ID, "kind", kind.String(), "rescheduled", updated != nil)
	return i, nil
}

// Touch records a lightweight interaction at now and optionally reschedules.
// It returns the contact as stored afterwards.
func (s *KnotService) Touch(id string, reschedule bool) (*model.Contact, error) {
	if _, err := s.AddInteraction(NewInteractionInput{ContactID: id, Kind: TouchKind}, reschedule); err != nil {
		return nil, err
	}
	return s.mustContact(id)
}

// ListInteractions returns a contact's history, newest first.
func (s *KnotService) ListInteractions(id string, limit int) ([]*model.Interaction, error) {
	if _, err := s.mustContact(id); err != nil {
		return nil, err
	}
	list, err := s.database.ListInteractions(id, limit)
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	return list, nil
}
