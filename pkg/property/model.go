// ABOUTME: Well-known property vocabulary and comparison validation
// ABOUTME: Infers value types and rejects operators that do not fit a type

package property

import (
	"strconv"
	"strings"
	"time"

	"github.com/nainya/contentmcp/pkg/faults"
)

// vocabulary is read-only after init
var vocabulary = map[string]ValueType{
	"cm:name":           TypeString,
	"cm:title":          TypeString,
	"cm:description":    TypeString,
	"cm:author":         TypeString,
	"cm:creator":        TypeString,
	"cm:modifier":       TypeString,
	"cm:versionLabel":   TypeString,
	"cm:versionType":    TypeString,
	"cm:created":        TypeTimestamp,
	"cm:modified":       TypeTimestamp,
	"cm:accessed":       TypeTimestamp,
	"cm:content.size":   TypeInteger,
	"cm:autoVersion":    TypeBoolean,
	"cm:initialVersion": TypeBoolean,
}

// DateLayouts are the literal formats accepted for timestamp values
var DateLayouts = []string{"2006-01-02", time.RFC3339}

// Lookup returns the declared type of a well-known property
func Lookup(name string) (ValueType, bool) {
	t, ok := vocabulary[strings.TrimSpace(name)]
	return t, ok
}

// InferType resolves a property's type from the vocabulary, else from the literal shape
func InferType(name, raw string) ValueType {
	if t, ok := Lookup(name); ok {
		return t
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return TypeString
	}
	if _, err := strconv.ParseBool(raw); err == nil && (strings.EqualFold(raw, "true") || strings.EqualFold(raw, "false")) {
		return TypeBoolean
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return TypeInteger
	}
	if _, ok := ParseDate(raw); ok {
		return TypeTimestamp
	}
	return TypeString
}

// ParseDate parses a YYYY-MM-DD or RFC3339 literal
func ParseDate(raw string) (time.Time, bool) {
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(raw)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Validate checks that cmp can be applied to a property named name of type t
func Validate(name string, cmp Comparison, t ValueType) error {
	if _, _, err := SplitName(name); err != nil {
		return err
	}
	known := false
	for _, c := range Comparisons {
		if c == cmp {
			known = true
			break
		}
	}
	if !known {
		return faults.InvalidComparison("unknown comparison %q", cmp)
	}
	if cmp.Ordering() && t != TypeTimestamp && t != TypeInteger {
		return faults.InvalidComparison("comparison %s needs a timestamp or integer property, %s is %s", cmp, name, t)
	}
	return nil
}

// CheckLiteral verifies raw parses as a value of type t
func CheckLiteral(t ValueType, raw string) error {
	raw = strings.TrimSpace(raw)
	switch t {
	case TypeInteger:
		if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
			return faults.Validation("value %q is not an integer", raw)
		}
	case TypeTimestamp:
		if _, ok := ParseDate(raw); !ok {
			return faults.Validation("value %q is not a date (YYYY-MM-DD or RFC3339)", raw)
		}
	case TypeBoolean:
		if _, err := strconv.ParseBool(raw); err != nil {
			return faults.Validation("value %q is not a boolean", raw)
		}
	}
	return nil
}
