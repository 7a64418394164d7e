package query

import (
	"strings"
	"time"
)

// Row is the subset of a contact a Plan reads.
type Row struct {
	ID               string
	DisplayName      string
	Phone            string
	Handle           string
	Emails           []string
	Tags             []string
	NextTouchpointAt *time.Time
	Archived         bool
}

// Matches evaluates the plan's predicates against r. It agrees with the SQL
// rendering in the database package, including ASCII-only case folding.
func (p *Plan) Matches(r Row) bool {
	for _, pred := range p.Predicates {
		if !p.match(pred, r) {
			return false
		}
	}
	return true
}

func (p *Plan) match(pred Predicate, r Row) bool {
	switch pred := pred.(type) {
	case TextPredicate:
		needle := foldASCII(pred.Needle)
		if strings.Contains(foldASCII(r.DisplayName), needle) ||
			strings.Contains(foldASCII(r.Phone), needle) ||
			strings.Contains(foldASCII(r.Handle), needle) {
			return true
		}
		for _, e := range r.Emails {
			if strings.Contains(foldASCII(e), needle) {
				return true
			}
		}
		return false
	case TagPredicate:
		for _, t := range r.Tags {
			if t == pred.Name {
				return true
			}
		}
		return false
	case DuePredicate:
		if pred.Null {
			return r.NextTouchpointAt == nil
		}
		if r.NextTouchpointAt == nil {
			return false
		}
		t := *r.NextTouchpointAt
		if pred.From != nil && t.Before(*pred.From) {
			return false
		}
		if pred.Before != nil && !t.Before(*pred.Before) {
			return false
		}
		return true
	case ArchivedPredicate:
		return r.Archived == pred.Archived
	}
	return false
}

// Less orders rows by bucket, then display name ignoring ASCII case, then id.
func (p *Plan) Less(a, b Row) bool {
	ba, bb := p.Bucket(a.NextTouchpointAt), p.Bucket(b.NextTouchpointAt)
	if ba != bb {
		return ba < bb
	}
	na, nb := foldASCII(a.DisplayName), foldASCII(b.DisplayName)
	if na != nb {
		return na < nb
	}
	return a.ID < b.ID
}

// foldASCII lowercases A-Z only, matching SQLite's NOCASE and LIKE.
func foldASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}
