// ABOUTME: Version label parsing and increment rules
// ABOUTME: Minor checkins bump the minor part, major checkins start a new major

package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidLabel indicates a label that is not major.minor
var ErrInvalidLabel = errors.New("version: invalid label")

// ParseLabel parses "M.m"; an empty label is Initial
func ParseLabel(s string) (Label, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Initial, nil
	}
	majorPart, minorPart, ok := strings.Cut(s, ".")
	if !ok {
		return Label{}, fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
	major, err := strconv.Atoi(majorPart)
	if err != nil || major < 0 {
		return Label{}, fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
	minor, err := strconv.Atoi(minorPart)
	if err != nil || minor < 0 {
		return Label{}, fmt.Errorf("%w: %q", ErrInvalidLabel, s)
	}
	return Label{Major: major, Minor: minor}, nil
}

// Next returns the label following l for a major or minor checkin
func (l Label) Next(major bool) Label {
	if major {
		return Label{Major: l.Major + 1}
	}
	return Label{Major: l.Major, Minor: l.Minor + 1}
}

func (l Label) String() string {
	return fmt.Sprintf("%d.%d", l.Major, l.Minor)
}

// Less reports whether l precedes other
func (l Label) Less(other Label) bool {
	if l.Major != other.Major {
		return l.Major < other.Major
	}
	return l.Minor < other.Minor
}

// NextLabel parses current and returns the following label as a string
func NextLabel(current string, major bool) (string, error) {
	l, err := ParseLabel(current)
	if err != nil {
		return "", err
	}
	return l.Next(major).String(), nil
}
