package filter

import (
	"fmt"
	"strings"

	"knot-go/internal/model"
	"knot-go/internal/rules"
)

// ErrorKind classifies a parse failure.
type ErrorKind int

const (
	EmptyTag ErrorKind = iota
	InvalidTag
	InvalidDueValue
	InvalidArchivedValue
)

func (k ErrorKind) String() string {
	switch k {
	case EmptyTag:
		return "EmptyTag"
	case InvalidTag:
		return "InvalidTag"
	case InvalidDueValue:
		return "InvalidDueValue"
	case InvalidArchivedValue:
		return "InvalidArchivedValue"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// ParseError reports the first bad token. Index is zero-based over the
// whitespace-separated tokens; Value is the offending value after the
// prefix.
type ParseError struct {
	Index int
	Token string
	Kind  ErrorKind
	Value string
}

func (e *ParseError) Error() string {
	var detail string
	switch e.Kind {
	case EmptyTag:
		detail = "empty tag"
	case InvalidTag:
		detail = fmt.Sprintf("invalid tag %q", e.Value)
	case InvalidDueValue:
		detail = fmt.Sprintf("invalid due value %q (want overdue, today, soon, any or none)", e.Value)
	case InvalidArchivedValue:
		detail = fmt.Sprintf("invalid archived value %q (want true or false)", e.Value)
	default:
		detail = e.Kind.String()
	}
	return fmt.Sprintf("filter error at token %d (%q): %s", e.Index, e.Token, detail)
}

const (
	tagPrefix      = "#"
	duePrefix      = "due:"
	archivedPrefix = "archived:"
)

// Parse turns a filter string into an And of its terms in input order.
// Blank input yields an empty And. Parsing stops at the first error.
func Parse(input string) (Expr, error) {
	tokens := strings.Fields(input)
	terms := make([]Expr, 0, len(tokens))

	for i, tok := range tokens {
		term, err := parseToken(tok)
		if err != nil {
			err.Index = i
			err.Token = tok
			return nil, err
		}
		terms = append(terms, term)
	}
	return And{Terms: terms}, nil
}

func parseToken(tok string) (Expr, *ParseError) {
	if raw, ok := strings.CutPrefix(tok, tagPrefix); ok {
		if raw == "" {
			return nil, &ParseError{Kind: EmptyTag}
		}
		name, err := model.NormalizeTag(raw)
		if err != nil {
			return nil, &ParseError{Kind: InvalidTag, Value: raw}
		}
		return Tag{Name: name}, nil
	}

	if raw, ok := strings.CutPrefix(tok, duePrefix); ok {
		sel, ok := rules.ParseDueSelector(raw)
		if !ok {
			return nil, &ParseError{Kind: InvalidDueValue, Value: raw}
		}
		return Due{Selector: sel}, nil
	}

	if raw, ok := strings.CutPrefix(tok, archivedPrefix); ok {
		switch raw {
		case "true":
			return Archived{Archived: true}, nil
		case "false":
			return Archived{Archived: false}, nil
		}
		return nil, &ParseError{Kind: InvalidArchivedValue, Value: raw}
	}

	return Text{Value: tok}, nil
}
