package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/contentmcp/pkg/tools"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func memoryArgs(t *testing.T, args ...string) []string {
	return append(args, "--backend", "memory", "--workspace-dir", t.TempDir(), "--log-level", "error")
}

func TestToolsCommandListsEveryTool(t *testing.T) {
	out, err := run(t, "", "tools")
	require.NoError(t, err)
	for _, s := range tools.Descriptors() {
		assert.Contains(t, out, s.Name)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "contentmcp dev\n", out)
}

func TestCallRepositoryInfo(t *testing.T) {
	out, err := run(t, "", memoryArgs(t, "call", tools.ToolRepositoryInfo)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Repository")
}

func TestCallJSONFromStdin(t *testing.T) {
	out, err := run(t, `{"node_id":"-root-"}`, memoryArgs(t, "call", tools.ToolBrowseRepository, "-", "--json")...)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, float64(2), payload["total_items"])
}

func TestCallReportsFaultKind(t *testing.T) {
	_, err := run(t, "", memoryArgs(t, "call", tools.ToolSearchContent, `{"query":""}`)...)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "empty_query:"), err.Error())
}

func TestCallRejectsMalformedArguments(t *testing.T) {
	_, err := run(t, "", memoryArgs(t, "call", tools.ToolSearchContent, `{query`)...)
	assert.Error(t, err)
}

func TestReadArguments(t *testing.T) {
	raw, err := readArguments(strings.NewReader(""), nil)
	require.NoError(t, err)
	assert.Nil(t, raw)

	raw, err = readArguments(strings.NewReader(`{"a":1}`), []string{"-"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(raw))
}
