package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knot-go/internal/rules"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want Expr
	}{
		{"", And{Terms: []Expr{}}},
		{"   \t ", And{Terms: []Expr{}}},
		{"#friend #family due:soon", And{Terms: []Expr{
			Tag{Name: "friend"},
			Tag{Name: "family"},
			Due{Selector: rules.SelectSoon},
		}}},
		{"#Close-Friends", And{Terms: []Expr{Tag{Name: "close-friends"}}}},
		{"alice bob", And{Terms: []Expr{Text{Value: "alice"}, Text{Value: "bob"}}}},
		{"archived:true", And{Terms: []Expr{Archived{Archived: true}}}},
		{"archived:false due:none", And{Terms: []Expr{
			Archived{Archived: false},
			Due{Selector: rules.SelectNone},
		}}},
		{"due:overdue due:any", And{Terms: []Expr{
			Due{Selector: rules.SelectOverdue},
			Due{Selector: rules.SelectAny},
		}}},
		// Prefixes are case-sensitive; anything else is text.
		{"Due:soon", And{Terms: []Expr{Text{Value: "Due:soon"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		in    string
		index int
		token string
		kind  ErrorKind
		value string
	}{
		{"#", 0, "#", EmptyTag, ""},
		{"due:later", 0, "due:later", InvalidDueValue, "later"},
		{"archived:maybe", 0, "archived:maybe", InvalidArchivedValue, "maybe"},
		{"archived:yes", 0, "archived:yes", InvalidArchivedValue, "yes"},
		{"ada #--- due:soon", 1, "#---", InvalidTag, "---"},
		{"ada #ok due:Soon", 2, "due:Soon", InvalidDueValue, "Soon"},
		{"due:", 0, "due:", InvalidDueValue, ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			expr, err := Parse(tt.in)
			assert.Nil(t, expr)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "want *ParseError, got %v", err)
			assert.Equal(t, tt.index, perr.Index)
			assert.Equal(t, tt.token, perr.Token)
			assert.Equal(t, tt.kind, perr.Kind)
			assert.Equal(t, tt.value, perr.Value)
		})
	}
}

func TestParse_StopsAtFirstError(t *testing.T) {
	_, err := Parse("# due:later")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, EmptyTag, perr.Kind)
	assert.Equal(t, 0, perr.Index)
}

func TestParseError_Message(t *testing.T) {
	_, err := Parse("ada due:later")
	require.Error(t, err)
	assert.Equal(t,
		`filter error at token 1 ("due:later"): invalid due value "later" (want overdue, today, soon, any or none)`,
		err.Error())
}

func TestExpr_String(t *testing.T) {
	expr, err := Parse("  #Friend   ada due:soon archived:false ")
	require.NoError(t, err)
	assert.Equal(t, "#friend ada due:soon archived:false", expr.String())

	again, err := Parse(expr.String())
	require.NoError(t, err)
	assert.Equal(t, expr, again)
}
