package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/contentmcp/pkg/faults"
)

func TestClassifyToolError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		kind      faults.Kind
		retryable bool
		requery   bool
	}{
		{"validation", faults.Validation("max_results must be at most 1000"), faults.KindValidation, false, false},
		{"wrapped", fmt.Errorf("tool: %w", faults.NodeNotFound("n1", nil)), faults.KindNodeNotFound, false, false},
		{"unavailable", faults.BackendUnavailable("search", errors.New("dial tcp: refused")), faults.KindBackendUnavailable, true, false},
		{"indeterminate", faults.Indeterminate("checkin", "n1", context.DeadlineExceeded), faults.KindIndeterminate, false, true},
		{"deadline", context.DeadlineExceeded, faults.KindBackendUnavailable, true, false},
		{"plain", errors.New("boom"), faults.KindInternal, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			env := classifyToolError(tc.err)
			assert.Equal(t, string(tc.kind), env.Kind)
			assert.Equal(t, tc.retryable, env.Retryable)
			assert.Equal(t, tc.requery, env.RequeryState)
			assert.NotEmpty(t, env.Message)
		})
	}
}

func TestBackendTextStaysInDetails(t *testing.T) {
	env := classifyToolError(faults.BackendUnavailable("browse", errors.New("HTTP 503 from proxy")))
	assert.NotContains(t, env.Message, "503")
	assert.Contains(t, env.Details, "503")
}

func TestToolErrorRendersJSON(t *testing.T) {
	err := toolError{Envelope: classifyToolError(faults.NotCheckedOut("n1", ""))}

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(err.Error()), &decoded))
	assert.Equal(t, "not_checked_out", decoded["error"]["kind"])
	_, hasDetails := decoded["error"]["details"]
	assert.False(t, hasDetails)
}
