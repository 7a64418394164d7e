package database

import (
	"fmt"
	"strings"

	"knot-go/internal/query"
)

// planBuilder renders a query.Plan to SQL. Every value is bound; user text
// never reaches the statement.
type planBuilder struct {
	args       []any
	conditions []string
}

// nextArg binds value and returns its placeholder.
func (b *planBuilder) nextArg(value any) string {
	b.args = append(b.args, value)
	return "?"
}

func (b *planBuilder) where(format string, a ...any) {
	b.conditions = append(b.conditions, fmt.Sprintf(format, a...))
}

// renderPlan returns the contact listing statement for plan and its bound
// arguments. The ORDER BY mirrors query.Plan.Less.
func renderPlan(plan *query.Plan) (string, []any) {
	b := &planBuilder{}
	for _, pred := range plan.Predicates {
		b.predicate(pred)
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + contactColumns + " FROM contacts c")
	if len(b.conditions) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(b.conditions, " AND "))
	}
	fmt.Fprintf(&sb, ` ORDER BY CASE
		WHEN c.next_touchpoint_at IS NULL THEN 4
		WHEN c.next_touchpoint_at < %s THEN 0
		WHEN c.next_touchpoint_at < %s THEN 1
		WHEN c.next_touchpoint_at < %s THEN 2
		ELSE 3 END, c.display_name COLLATE NOCASE, c.id`,
		b.nextArg(toUnix(plan.Now)),
		b.nextArg(toUnix(plan.Bounds.StartOfTomorrow)),
		b.nextArg(toUnix(plan.Bounds.SoonEnd)))
	return sb.String(), b.args
}

// LIKE folds ASCII case only, the same folding query.Plan.Matches applies.
func (b *planBuilder) predicate(pred query.Predicate) {
	switch p := pred.(type) {
	case query.TextPredicate:
		pattern := "%" + escapeLike(p.Needle) + "%"
		b.where(`(c.display_name LIKE %s ESCAPE '\'
			OR coalesce(c.phone, '') LIKE %s ESCAPE '\'
			OR coalesce(c.handle, '') LIKE %s ESCAPE '\'
			OR EXISTS (SELECT 1 FROM contact_emails ce WHERE ce.contact_id = c.id AND ce.email LIKE %s ESCAPE '\'))`,
			b.nextArg(pattern), b.nextArg(pattern), b.nextArg(pattern), b.nextArg(pattern))
	case query.TagPredicate:
		b.where(`EXISTS (SELECT 1 FROM contact_tags ct JOIN tags t ON t.id = ct.tag_id
			WHERE ct.contact_id = c.id AND t.name = %s)`, b.nextArg(p.Name))
	case query.DuePredicate:
		if p.Null {
			b.where("c.next_touchpoint_at IS NULL")
			return
		}
		b.where("c.next_touchpoint_at IS NOT NULL")
		if p.From != nil {
			b.where("c.next_touchpoint_at >= %s", b.nextArg(toUnix(*p.From)))
		}
		if p.Before != nil {
			b.where("c.next_touchpoint_at < %s", b.nextArg(toUnix(*p.Before)))
		}
	case query.ArchivedPredicate:
		if p.Archived {
			b.where("c.archived_at IS NOT NULL")
		} else {
			b.where("c.archived_at IS NULL")
		}
	}
}

// escapeLike escapes LIKE wildcards so the needle matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
