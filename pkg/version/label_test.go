// ABOUTME: Tests for version label arithmetic
// ABOUTME: Verifies minor and major increment sequences

package version

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinorSequenceThenMajor(t *testing.T) {
	l := Initial
	var got []string
	for i := 0; i < 3; i++ {
		l = l.Next(false)
		got = append(got, l.String())
	}
	l = l.Next(true)
	got = append(got, l.String())

	assert.Equal(t, []string{"0.1", "0.2", "0.3", "1.0"}, got)
}

func TestParseLabel(t *testing.T) {
	l, err := ParseLabel("2.7")
	require.NoError(t, err)
	assert.Equal(t, Label{Major: 2, Minor: 7}, l)

	l, err = ParseLabel("  ")
	require.NoError(t, err)
	assert.Equal(t, Initial, l)

	for _, bad := range []string{"1", "a.b", "1.-1", "-1.0", "1.x"} {
		_, err := ParseLabel(bad)
		assert.True(t, errors.Is(err, ErrInvalidLabel), "label %q", bad)
	}
}

func TestNextLabel(t *testing.T) {
	next, err := NextLabel("1.4", false)
	require.NoError(t, err)
	assert.Equal(t, "1.5", next)

	next, err = NextLabel("1.4", true)
	require.NoError(t, err)
	assert.Equal(t, "2.0", next)

	next, err = NextLabel("", false)
	require.NoError(t, err)
	assert.Equal(t, "0.1", next)
}

func TestLess(t *testing.T) {
	assert.True(t, Label{0, 9}.Less(Label{1, 0}))
	assert.True(t, Label{1, 1}.Less(Label{1, 2}))
	assert.False(t, Label{2, 0}.Less(Label{1, 9}))
}
