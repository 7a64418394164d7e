package knot

import (
	"knot-go/internal/filter"
	"knot-go/internal/rules"
)

// Reminders groups the contacts that need attention now.
type Reminders struct {
	Overdue    []ContactSummary
	Today      []ContactSummary
	Soon       []ContactSummary
	DatesToday []DateOccurrence
}

// Empty reports whether there is nothing to remind about.
func (r *Reminders) Empty() bool {
	return len(r.Overdue) == 0 && len(r.Today) == 0 && len(r.Soon) == 0 && len(r.DatesToday) == 0
}

// Remind returns active contacts that are overdue, due today or due soon,
// plus the contact dates falling today.
func (s *KnotService) Remind() (*Reminders, error) {
	list, err := s.listExpr(filter.And{Terms: []filter.Expr{filter.Due{Selector: rules.SelectAny}}})
	if err != nil {
		return nil, err
	}

	r := &Reminders{}
	for _, c := range list {
		switch c.DueState {
		case rules.Overdue:
			r.Overdue = append(r.Overdue, c)
		case rules.Today:
			r.Today = append(r.Today, c)
		case rules.Soon:
			r.Soon = append(r.Soon, c)
		}
	}

	r.DatesToday, err = s.DatesToday()
	if err != nil {
		return nil, err
	}
	s.logger.Debug("reminders computed", "overdue", len(r.Overdue), "today", len(r.Today), "soon", len(r.Soon), "dates", len(r.DatesToday))
	return r, nil
}
