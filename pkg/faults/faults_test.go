// ABOUTME: Tests for error kinds and classification helpers
// ABOUTME: Verifies errors.Is matching, wrapping and indeterminate messages

package faults

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindMatchingThroughWrap(t *testing.T) {
	err := fmt.Errorf("checkin: %w", NotCheckedOut("n1", ""))

	assert.True(t, errors.Is(err, ErrNotCheckedOut))
	assert.False(t, errors.Is(err, ErrAlreadyCheckedOut))
	assert.Equal(t, KindNotCheckedOut, KindOf(err))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestBackendDetailsStayOutOfMessage(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:8080: connection refused")
	err := BackendUnavailable("search", cause)

	assert.NotContains(t, err.Error(), "connection refused")
	assert.Contains(t, err.Details, "connection refused")
	assert.True(t, errors.Is(err, cause))
	assert.True(t, Retryable(err))
}

func TestIndeterminateIsDistinct(t *testing.T) {
	err := Indeterminate("checkin", "n1", errors.New("context deadline exceeded"))

	require.True(t, strings.HasPrefix(err.Error(), IndeterminatePrefix))
	assert.Contains(t, err.Error(), "re-query")
	assert.True(t, RequiresRequery(err))
	assert.False(t, Retryable(err))
}

func TestLocalKinds(t *testing.T) {
	local := []Kind{KindValidation, KindEmptyQuery, KindUnknownPreset, KindInvalidComparison}
	for _, k := range local {
		assert.True(t, k.Local(), "kind %s", k)
	}
	assert.False(t, KindBackendUnavailable.Local())
	assert.False(t, KindIndeterminate.Local())
}

func TestWithDetailsCopies(t *testing.T) {
	base := VersioningUnsupported("n1")
	withDetails := base.WithDetails("aspect cm:versionable missing")

	assert.Empty(t, base.Details)
	assert.Equal(t, "aspect cm:versionable missing", withDetails.Details)
	assert.Equal(t, base.Message, withDetails.Message)
}
