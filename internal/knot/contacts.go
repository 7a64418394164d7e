package knot

import (
	"fmt"
	"strings"

	"knot-go/internal/filter"
	"knot-go/internal/model"
	"knot-go/internal/query"
	"knot-go/internal/rules"
)

// NewContactInput holds the raw values for AddContact. Blank strings mean
// "not set".
type NewContactInput struct {
	DisplayName    string
	Email          string
	Phone          string
	Handle         string
	Timezone       string
	CadenceDays    *int
	NextTouchpoint string
	Tags           []string
}

// ContactPatch describes a partial update. nil fields are left unchanged; a
// pointer to "" clears an optional string.
type ContactPatch struct {
	DisplayName         *string
	Email               *string
	Phone               *string
	Handle              *string
	Timezone            *string
	CadenceDays         *int
	ClearCadence        bool
	NextTouchpoint      *string
	ClearNextTouchpoint bool
}

// ContactSummary is one row of a contact listing.
type ContactSummary struct {
	Contact  *model.Contact
	Tags     []string
	DueState rules.DueState
}

// ContactDetail is everything shown for a single contact.
type ContactDetail struct {
	Contact      *model.Contact
	DueState     rules.DueState
	Tags         []string
	Emails       []model.ContactEmail
	Interactions []*model.Interaction
	Dates        []*model.ContactDate
}

// RecentInteractionLimit bounds the history included in a ContactDetail.
const RecentInteractionLimit = 10

// AddContact validates and stores a new contact. When no cadence is given
// the loop policy (or the configured default) supplies one.
func (s *KnotService) AddContact(in NewContactInput) (*model.Contact, error) {
	now := s.now()
	c := model.NewContact(s.idgen.New(), in.DisplayName, now)
	c.Phone = model.OptionalString(in.Phone)
	c.Handle = model.OptionalString(in.Handle)
	c.Timezone = model.OptionalString(in.Timezone)
	c.CadenceDays = in.CadenceDays

	tags, err := model.NormalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	var emails []model.ContactEmail
	if strings.TrimSpace(in.Email) != "" {
		e, ok := model.NormalizeEmail(in.Email)
		if !ok {
			return nil, &model.ValidationError{Field: "email", Value: in.Email, Err: model.ErrInvalidEmail}
		}
		c.Email = &e
		emails = append(emails, model.ContactEmail{ContactID: c.ID, Email: e, IsPrimary: true, CreatedAt: now})
	}

	if c.CadenceDays == nil {
		c.CadenceDays = s.defaultCadence(tags)
	}

	if strings.TrimSpace(in.NextTouchpoint) != "" {
		next, err := s.parseTouchpoint(in.NextTouchpoint, now)
		if err != nil {
			return nil, err
		}
		c.NextTouchpointAt = &next
	} else if s.settings.Loops.ScheduleMissing && c.CadenceDays != nil {
		next, err := rules.ScheduleNext(now, now, *c.CadenceDays)
		if err != nil {
			return nil, err
		}
		c.NextTouchpointAt = &next
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := model.ValidateEmails(emails); err != nil {
		return nil, err
	}
	if err := s.database.CreateContact(c, emails, tags); err != nil {
		return nil, fmt.Errorf("creating contact: %w", err)
	}

	s.logger.Info("contact added", "id", c.ID, "name", c.DisplayName, "tags", len(tags))
	return c, nil
}

// defaultCadence is the loop cadence for tags, falling back to the
// configured default cadence.
func (s *KnotService) defaultCadence(tags []string) *int {
	if days, matched := s.settings.Loops.Policy.ResolveCadence(tags); matched || days != nil {
		return days
	}
	return s.settings.DefaultCadenceDays
}

// UpdateContact applies patch to the contact. Every field is validated
// before anything is written; on error the stored contact is unchanged.
func (s *KnotService) UpdateContact(id string, patch ContactPatch) (*model.Contact, error) {
	c, err := s.mustContact(id)
	if err != nil {
		return nil, err
	}
	now := s.now()
	updated := *c

	if patch.DisplayName != nil {
		updated.DisplayName = strings.TrimSpace(*patch.DisplayName)
	}
	if patch.Email != nil {
		if strings.TrimSpace(*patch.Email) == "" {
			updated.Email = nil
		} else {
			e, ok := model.NormalizeEmail(*patch.Email)
			if !ok {
				return nil, &model.ValidationError{Field: "email", Value: *patch.Email, Err: model.ErrInvalidEmail}
			}
			updated.Email = &e
		}
	}
	if patch.Phone != nil {
		updated.Phone = model.OptionalString(*patch.Phone)
	}
	if patch.Handle != nil {
		updated.Handle = model.OptionalString(*patch.Handle)
	}
	if patch.Timezone != nil {
		updated.Timezone = model.OptionalString(*patch.Timezone)
	}
	switch {
	case patch.ClearCadence:
		updated.CadenceDays = nil
	case patch.CadenceDays != nil:
		days := *patch.CadenceDays
		updated.CadenceDays = &days
	}
	switch {
	case patch.ClearNextTouchpoint:
		updated.NextTouchpointAt = nil
	case patch.NextTouchpoint != nil:
		next, err := s.parseTouchpoint(*patch.NextTouchpoint, now)
		if err != nil {
			return nil, err
		}
		updated.NextTouchpointAt = &next
	}

	if err := updated.Validate(); err != nil {
		return nil, err
	}
	updated.UpdatedAt = now
	if err := s.database.UpdateContact(&updated); err != nil {
		return nil, fmt.Errorf("updating contact: %w", err)
	}

	s.logger.Info("contact updated", "id", id)
	return &updated, nil
}

// GetContact returns the contact with its tags, emails, recent history and
// dates.
func (s *KnotService) GetContact(id string) (*ContactDetail, error) {
	c, err := s.mustContact(id)
	if err != nil {
		return nil, err
	}
	tags, err := s.database.ListContactTags(id)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	emails, err := s.database.ListEmails(id)
	if err != nil {
		return nil, fmt.Errorf("listing emails: %w", err)
	}
	interactions, err := s.database.ListInteractions(id, RecentInteractionLimit)
	if err != nil {
		return nil, fmt.Errorf("listing interactions: %w", err)
	}
	dates, err := s.database.ListContactDates(id)
	if err != nil {
		return nil, fmt.Errorf("listing dates: %w", err)
	}

	return &ContactDetail{
		Contact:      c,
		DueState:     rules.Classify(s.now(), c.NextTouchpointAt, s.settings.SoonDays, s.loc()),
		Tags:         tags,
		Emails:       emails,
		Interactions: interactions,
		Dates:        dates,
	}, nil
}

// ArchiveContact soft-deletes a contact. Archiving twice keeps the first
// timestamp.
func (s *KnotService) ArchiveContact(id string) (*model.Contact, error) {
	c, err := s.mustContact(id)
	if err != nil {
		return nil, err
	}
	if c.Archived() {
		return c, nil
	}
	now := s.now()
	c.ArchivedAt = &now
	c.UpdatedAt = now
	if err := s.database.UpdateContact(c); err != nil {
		return nil, fmt.Errorf("archiving contact: %w", err)
	}
	s.logger.Info("contact archived", "id", id)
	return c, nil
}

// UnarchiveContact restores an archived contact.
func (s *KnotService) UnarchiveContact(id string) (*model.Contact, error) {
	c, err := s.mustContact(id)
	if err != nil {
		return nil, err
	}
	if !c.Archived() {
		return c, nil
	}
	c.ArchivedAt = nil
	c.UpdatedAt = s.now()
	if err := s.database.UpdateContact(c); err != nil {
		return nil, fmt.Errorf("unarchiving contact: %w", err)
	}
	s.logger.Info("contact unarchived", "id", id)
	return c, nil
}

// DeleteContact permanently removes a contact with its interactions, dates,
// emails and tag links.
func (s *KnotService) DeleteContact(id string) error {
	if _, err := s.mustContact(id); err != nil {
		return err
	}
	if err := s.database.DeleteContact(id); err != nil {
		return fmt.Errorf("deleting contact: %w", err)
	}
	s.logger.Info("contact deleted", "id", id)
	return nil
}

// ListContacts parses filterText, compiles it against the current time and
// returns the matching contacts in due order. Parse failures are returned as
// *filter.ParseError.
func (s *KnotService) ListContacts(filterText string) ([]ContactSummary, error) {
	expr, err := filter.Parse(filterText)
	if err != nil {
		return nil, err
	}
	return s.listExpr(expr)
}

func (s *KnotService) listExpr(expr filter.Expr) ([]ContactSummary, error) {
	plan, err := query.Compile(expr, s.now(), s.loc(), s.settings.SoonDays)
	if err != nil {
		return nil, err
	}
	contacts, err := s.database.ListContacts(plan)
	if err != nil {
		return nil, fmt.Errorf("listing contacts: %w", err)
	}

	ids := make([]string, len(contacts))
	for i, c := range contacts {
		ids[i] = c.ID
	}
	tags, err := s.database.ListTagsForContacts(ids)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}

	out := make([]ContactSummary, len(contacts))
	for i, c := range contacts {
		out[i] = ContactSummary{
			Contact:  c,
			Tags:     tags[c.ID],
			DueState: plan.State(c.NextTouchpointAt),
		}
	}
	s.logger.Debug("contacts listed", "filter", expr.String(), "count", len(out))
	return out, nil
}

// Schedule sets a contact's next touchpoint from user input. Date-only
// input means the end of that local day; past instants are rejected with
// *rules.SchedulingGuardError.
func (s *KnotService) Schedule(id, raw string) (*model.Contact, error) {
	return s.UpdateContact(id, ContactPatch{NextTouchpoint: &raw})
}

// Unschedule clears a contact's next touchpoint.
func (s *KnotService) Unschedule(id string) (*model.Contact, error) {
	return s.UpdateContact(id, ContactPatch{ClearNextTouchpoint: true})
}

// SetCadence sets or, with nil, clears a contact's cadence.
func (s *KnotService) SetCadence(id string, days *int) (*model.Contact, error) {
	if days == nil {
		return s.UpdateContact(id, ContactPatch{ClearCadence: true})
	}
	return s.UpdateContact(id, ContactPatch{CadenceDays: days})
}
