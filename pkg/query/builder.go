// ABOUTME: Fluent builder for token-search conjunctions
// ABOUTME: Produces escaped clauses joined with AND

package query

import "strings"

// Builder assembles a token-search statement clause by clause
type Builder struct {
	clauses []string
}

// NewBuilder creates an empty builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Raw adds a caller-written clause, parenthesized, without escaping
func (b *Builder) Raw(clause string) *Builder {
	clause = strings.TrimSpace(clause)
	if clause != "" {
		b.clauses = append(b.clauses, "("+clause+")")
	}
	return b
}

// Type restricts results to a node type
func (b *Builder) Type(nodeType string) *Builder {
	if nodeType = strings.TrimSpace(nodeType); nodeType != "" {
		b.clauses = append(b.clauses, `TYPE:"`+Escape(nodeType)+`"`)
	}
	return b
}

// Range adds an inclusive range on a property; empty bounds become MIN/MAX
func (b *Builder) Range(prop, from, to string) *Builder {
	lo, hi := "MIN", "MAX"
	if from != "" {
		lo = `"` + Escape(from) + `"`
	}
	if to != "" {
		hi = `"` + Escape(to) + `"`
	}
	b.clauses = append(b.clauses, prop+":["+lo+" TO "+hi+"]")
	return b
}

// Clause adds a pre-rendered clause as is
func (b *Builder) Clause(clause string) *Builder {
	b.clauses = append(b.clauses, clause)
	return b
}

// Build joins the clauses with AND
func (b *Builder) Build() string {
	return strings.Join(b.clauses, " AND ")
}

// Escape protects backslashes and double quotes inside a quoted literal
func Escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
