package server

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nainya/contentmcp/pkg/faults"
)

type toolErrorEnvelope struct {
	Kind         string `json:"kind"`
	Message      string `json:"message"`
	Details      string `json:"details,omitempty"`
	Retryable    bool   `json:"retryable"`
	RequeryState bool   `json:"requery_state"`
}

func withStructuredToolErrors[In, Out any](h mcpsdk.ToolHandlerFor[In, Out]) mcpsdk.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input In) (*mcpsdk.CallToolResult, Out, error) {
		res, out, err := h(ctx, req, input)
		if err == nil {
			return res, out, nil
		}
		var zero Out
		return nil, zero, toolError{Envelope: classifyToolError(err)}
	}
}

type toolError struct {
	Envelope toolErrorEnvelope
}

func (e toolError) Error() string {
	encoded, err := json.Marshal(map[string]any{"error": e.Envelope})
	if err != nil {
		return `{"error":{"kind":"internal_error","message":"failed to encode error envelope"}}`
	}
	return string(encoded)
}

// classifyToolError builds the envelope for err. Unclassified errors become
// internal errors whose text only appears in details.
func classifyToolError(err error) toolErrorEnvelope {
	var fe *faults.Error
	if !errors.As(err, &fe) {
		switch {
		case errors.Is(err, context.Canceled):
			fe = &faults.Error{Kind: faults.KindInternal, Message: "request canceled"}
		case errors.Is(err, context.DeadlineExceeded):
			fe = &faults.Error{Kind: faults.KindBackendUnavailable, Message: "request timed out"}
		default:
			fe = &faults.Error{Kind: faults.KindInternal, Message: "internal error"}
		}
		fe.Details = strings.TrimSpace(err.Error())
	}
	return toolErrorEnvelope{
		Kind:         string(fe.Kind),
		Message:      fe.Message,
		Details:      fe.Details,
		Retryable:    faults.Retryable(fe),
		RequeryState: faults.RequiresRequery(fe),
	}
}
