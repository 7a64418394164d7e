// Package query compiles a filter AST into a storage-neutral Plan: typed
// predicates, bound instants computed once, and the fixed result ordering.
// The database package renders a Plan to SQL with bound parameters.
package query

import (
	"fmt"
	"time"

	"knot-go/internal/filter"
	"knot-go/internal/rules"
)

// Predicate is one requirement a contact must satisfy.
type Predicate interface {
	predicate()
}

// TextPredicate matches Needle as a case-insensitive substring of the display
// name, phone, handle or any email address.
type TextPredicate struct{ Needle string }

// TagPredicate requires membership in Name.
type TagPredicate struct{ Name string }

// DuePredicate constrains next_touchpoint_at. When Null is set the value must
// be absent. Otherwise it must be present and lie in [From, Before), with a
// nil bound meaning unbounded on that side.
type DuePredicate struct {
	Selector rules.DueSelector
	Null     bool
	From     *time.Time
	Before   *time.Time
}

// ArchivedPredicate selects archived (true) or active (false) contacts.
type ArchivedPredicate struct{ Archived bool }

func (TextPredicate) predicate()     {}
func (TagPredicate) predicate()      {}
func (DuePredicate) predicate()      {}
func (ArchivedPredicate) predicate() {}

// Plan is a compiled filter. Predicates are ANDed in order.
type Plan struct {
	Now        time.Time
	Bounds     rules.DayBounds
	Predicates []Predicate
}

// Compile builds a Plan from expr. Predicates keep AST order; when expr has no
// archived term an active-only predicate is appended.
func Compile(expr filter.Expr, now time.Time, loc *time.Location, soonDays int) (*Plan, error) {
	if err := rules.ValidateSoonDays(soonDays); err != nil {
		return nil, err
	}
	p := &Plan{
		Now:    now,
		Bounds: rules.DayBoundsAt(now, soonDays, loc),
	}

	sawArchived := false
	var walk func(filter.Expr) error
	walk = func(e filter.Expr) error {
		switch e := e.(type) {
		case filter.And:
			for _, t := range e.Terms {
				if err := walk(t); err != nil {
					return err
				}
			}
		case filter.Text:
			p.Predicates = append(p.Predicates, TextPredicate{Needle: e.Value})
		case filter.Tag:
			p.Predicates = append(p.Predicates, TagPredicate{Name: e.Name})
		case filter.Due:
			dp, err := p.due(e.Selector)
			if err != nil {
				return err
			}
			p.Predicates = append(p.Predicates, dp)
		case filter.Archived:
			sawArchived = true
			p.Predicates = append(p.Predicates, ArchivedPredicate{Archived: e.Archived})
		case nil:
		default:
			return fmt.Errorf("unsupported filter node %T", e)
		}
		return nil
	}
	if err := walk(expr); err != nil {
		return nil, err
	}
	if !sawArchived {
		p.Predicates = append(p.Predicates, ArchivedPredicate{Archived: false})
	}
	return p, nil
}

func (p *Plan) due(sel rules.DueSelector) (DuePredicate, error) {
	now := p.Now
	tomorrow := p.Bounds.StartOfTomorrow
	soonEnd := p.Bounds.SoonEnd

	switch sel {
	case rules.SelectOverdue:
		return DuePredicate{Selector: sel, Before: &now}, nil
	case rules.SelectToday:
		// Instants earlier today are overdue, so today starts at now.
		return DuePredicate{Selector: sel, From: &now, Before: &tomorrow}, nil
	case rules.SelectSoon:
		return DuePredicate{Selector: sel, From: &tomorrow, Before: &soonEnd}, nil
	case rules.SelectAny:
		return DuePredicate{Selector: sel}, nil
	case rules.SelectNone:
		return DuePredicate{Selector: sel, Null: true}, nil
	}
	return DuePredicate{}, fmt.Errorf("unknown due selector %q", sel)
}

// State classifies next with the plan's bounds.
func (p *Plan) State(next *time.Time) rules.DueState {
	if next == nil {
		return rules.Unscheduled
	}
	return p.Bounds.Classify(p.Now, *next)
}

// Bucket is the sort rank of next: overdue 0, today 1, soon 2, scheduled 3,
// unscheduled 4.
func (p *Plan) Bucket(next *time.Time) int {
	return BucketOf(p.State(next))
}

// BucketOf maps a due state to its sort rank.
func BucketOf(s rules.DueState) int {
	switch s {
	case rules.Overdue:
		return 0
	case rules.Today:
		return 1
	case rules.Soon:
		return 2
	case rules.Scheduled:
		return 3
	default:
		return 4
	}
}
