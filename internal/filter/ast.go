// Package filter parses the contact filter language into an AST.
//
// A filter is a whitespace-separated list of terms, all of which must hold:
//
//	#tag            contact carries the (normalized) tag
//	due:<selector>  overdue | today | soon | any | none
//	archived:<b>    true | false
//	anything else   case-insensitive substring match
package filter

import (
	"strconv"
	"strings"

	"knot-go/internal/rules"
)

// Expr is a node of the filter AST.
type Expr interface {
	String() string
	expr()
}

// Text matches a substring of name, email, phone or handle.
type Text struct{ Value string }

// Tag requires membership in a normalized tag.
type Tag struct{ Name string }

// Due requires a due-state selector.
type Due struct{ Selector rules.DueSelector }

// Archived selects archived (true) or active (false) contacts.
type Archived struct{ Archived bool }

// And requires every term. An empty And matches everything.
type And struct{ Terms []Expr }

func (Text) expr()     {}
func (Tag) expr()      {}
func (Due) expr()      {}
func (Archived) expr() {}
func (And) expr()      {}

func (e Text) String() string     { return e.Value }
func (e Tag) String() string      { return "#" + e.Name }
func (e Due) String() string      { return "due:" + string(e.Selector) }
func (e Archived) String() string { return "archived:" + strconv.FormatBool(e.Archived) }

func (e And) String() string {
	parts := make([]string, len(e.Terms))
	for i, t := range e.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " ")
}
