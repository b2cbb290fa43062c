// ABOUTME: Property value types, comparison operators and namespaced names
// ABOUTME: Shared vocabulary for metadata search and node property updates

package property

import (
	"strings"

	"github.com/nainya/contentmcp/pkg/faults"
)

// ValueType hints how a property literal is interpreted
type ValueType string

const (
	TypeString    ValueType = "string"
	TypeTimestamp ValueType = "timestamp"
	TypeInteger   ValueType = "integer"
	TypeBoolean   ValueType = "boolean"
)

// Comparison is a supported property operator
type Comparison string

const (
	Equals      Comparison = "equals"
	Contains    Comparison = "contains"
	StartsWith  Comparison = "starts_with"
	EndsWith    Comparison = "ends_with"
	GreaterThan Comparison = "greater_than"
	LessThan    Comparison = "less_than"
)

// Comparisons lists every operator in a stable order
var Comparisons = []Comparison{Equals, Contains, StartsWith, EndsWith, GreaterThan, LessThan}

// Ordering reports whether the operator compares by order rather than text
func (c Comparison) Ordering() bool {
	return c == GreaterThan || c == LessThan
}

// ParseComparison accepts operator tokens case-insensitively
func ParseComparison(s string) (Comparison, error) {
	token := strings.ToLower(strings.TrimSpace(s))
	for _, c := range Comparisons {
		if string(c) == token {
			return c, nil
		}
	}
	return "", faults.InvalidComparison("unknown comparison %q, expected one of %v", s, Comparisons)
}

// Value is a single property name/literal pair with its type hint
type Value struct {
	Name string
	Type ValueType
	Raw  string
}

// SplitName validates a prefix:local name and returns its parts
func SplitName(name string) (prefix, local string, err error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", faults.InvalidComparison("property name must not be empty")
	}
	prefix, local, ok := strings.Cut(name, ":")
	if !ok || prefix == "" || local == "" || strings.ContainsAny(name, " \t\"") {
		return "", "", faults.InvalidComparison("property name %q must have the form prefix:local", name)
	}
	return prefix, local, nil
}

// NewValue builds a Value, inferring its type from the vocabulary or the literal
func NewValue(name, raw string) (Value, error) {
	if _, _, err := SplitName(name); err != nil {
		return Value{}, err
	}
	name = strings.TrimSpace(name)
	return Value{Name: name, Type: InferType(name, raw), Raw: raw}, nil
}
