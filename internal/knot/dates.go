package knot

import (
	"fmt"
	"sort"
	"strings"

	"knot-go/internal/model"
	"knot-go/internal/rules"
)

// NewDateInput holds the raw values for AddDate. Date accepts the forms
// understood by rules.ParseDateParts.
type NewDateInput struct {
	ContactID string
	Kind      string
	Label     string
	Date      string
}

// DateOccurrence is a contact date that falls on the current local day.
type DateOccurrence struct {
	ContactID   string
	DisplayName string
	Date        *model.ContactDate
}

// AddDate attaches an annual date to a contact.
func (s *KnotService) AddDate(in NewDateInput) (*model.ContactDate, error) {
	if _, err := s.mustContact(in.ContactID); err != nil {
		return nil, err
	}
	kindRaw := in.Kind
	if strings.TrimSpace(kindRaw) == "" {
		kindRaw = string(model.DateBirthday)
	}
	kind, err := model.ParseDateKind(kindRaw)
	if err != nil {
		return nil, err
	}
	month, day, year, err := rules.ParseDateParts(in.Date)
	if err != nil {
		return nil, err
	}

	now := s.now()
	d := &model.ContactDate{
		ID:        s.idgen.New(),
		ContactID: in.ContactID,
		Kind:      kind,
		Label:     model.OptionalString(in.Label),
		Month:     month,
		Day:       day,
		Year:      year,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if err := s.database.CreateContactDate(d); err != nil {
		return nil, fmt.Errorf("creating date: %w", err)
	}
	s.logger.Info("date added", "id", in.ContactID, "kind", string(kind), "month", month, "day", day)
	return d, nil
}

// ListDates returns a contact's dates in calendar order.
func (s *KnotService) ListDates(id string) ([]*model.ContactDate, error) {
	if _, err := s.mustContact(id); err != nil {
		return nil, err
	}
	dates, err := s.database.ListContactDates(id)
	if err != nil {
		return nil, fmt.Errorf("listing dates: %w", err)
	}
	return dates, nil
}

// RemoveDate deletes a contact date by id.
func (s *KnotService) RemoveDate(dateID string) error {
	d, err := s.database.FindContactDate(dateID)
	if err != nil {
		return fmt.Errorf("finding date: %w", err)
	}
	if d == nil {
		return fmt.Errorf("date %s: %w", dateID, ErrNotFound)
	}
	if err := s.database.DeleteContactDate(dateID); err != nil {
		return fmt.Errorf("deleting date: %w", err)
	}
	s.logger.Info("date removed", "id", d.ContactID, "date_id", dateID)
	return nil
}

// DatesToday returns the dates of active contacts that occur on the current
// local day, ordered by contact name.
func (s *KnotService) DatesToday() ([]DateOccurrence, error) {
	dates, err := s.database.ListActiveContactDates()
	if err != nil {
		return nil, fmt.Errorf("listing dates: %w", err)
	}

	now := s.now()
	names := make(map[string]string)
	var out []DateOccurrence
	for _, d := range dates {
		if !rules.OccursToday(now, d.Month, d.Day, s.loc()) {
			continue
		}
		name, ok := names[d.ContactID]
		if !ok {
			c, err := s.mustContact(d.ContactID)
			if err != nil {
				return nil, err
			}
			name = c.DisplayName
			names[d.ContactID] = name
		}
		out = append(out, DateOccurrence{ContactID: d.ContactID, DisplayName: name, Date: d})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].DisplayName) < strings.ToLower(out[j].DisplayName)
	})
	return out, nil
}
