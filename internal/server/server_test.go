// Integration tests for the MCP tool host
package server

import (
	"context"
	"encoding/json"
	"sort"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/contentmcp/internal/logger"
	"github.com/nainya/contentmcp/internal/metrics"
	"github.com/nainya/contentmcp/pkg/lifecycle"
	"github.com/nainya/contentmcp/pkg/repository"
	"github.com/nainya/contentmcp/pkg/tools"
	"github.com/nainya/contentmcp/pkg/workspace"
)

type testEnv struct {
	facade  *tools.Facade
	repo    *repository.Memory
	metrics *metrics.Metrics
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := repository.NewMemory("alice")
	ws, err := workspace.New(t.TempDir())
	require.NoError(t, err)
	f, err := tools.New(tools.Config{
		Repository: repo,
		Lifecycle:  lifecycle.NewController(repo, "alice"),
		Workspace:  ws,
	})
	require.NoError(t, err)
	m := metrics.NewMetrics(prometheus.NewRegistry())
	t.Cleanup(m.Close)
	return &testEnv{facade: f, repo: repo, metrics: m}
}

func connectMCPClient(t *testing.T, env *testEnv) *mcpsdk.ClientSession {
	t.Helper()
	s, err := NewMCPServer(MCPConfig{
		Facade:    env.facade,
		Metrics:   env.metrics,
		Logger:    logger.Nop(),
		Transport: "test",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t1, t2 := mcpsdk.NewInMemoryTransports()
	ss, err := s.Server().Connect(ctx, t1, nil)
	require.NoError(t, err)
	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, t2, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Close()
		cancel()
	})
	return cs
}

func callTool(t *testing.T, cs *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := cs.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	return res
}

func resultText(t *testing.T, res *mcpsdk.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok, "expected text content, got %T", res.Content[0])
	return text.Text
}

func structured(t *testing.T, res *mcpsdk.CallToolResult) map[string]any {
	t.Helper()
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func errorEnvelope(t *testing.T, res *mcpsdk.CallToolResult) map[string]any {
	t.Helper()
	require.True(t, res.IsError, "expected isError=true")
	var content map[string]any
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &content))
	errObj, ok := content["error"].(map[string]any)
	require.True(t, ok, "expected error object, got %#v", content)
	return errObj
}

func TestMCPListsEveryTool(t *testing.T) {
	cs := connectMCPClient(t, setupTestEnv(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)

	var got, want []string
	for _, tool := range res.Tools {
		got = append(got, tool.Name)
		assert.NotEmpty(t, tool.Description, tool.Name)
		assert.NotNil(t, tool.InputSchema, tool.Name)
	}
	for _, s := range tools.Descriptors() {
		want = append(want, s.Name)
	}
	sort.Strings(got)
	sort.Strings(want)
	assert.Equal(t, want, got)
}

func TestMCPBrowseReturnsSummaryAndPayload(t *testing.T) {
	env := setupTestEnv(t)
	_, err := env.repo.AddDocument(repository.SharedRoot, "minutes.txt", []byte("agenda"), true, nil)
	require.NoError(t, err)
	cs := connectMCPClient(t, env)

	res := callTool(t, cs, tools.ToolBrowseRepository, map[string]any{"node_id": "-shared-"})
	require.False(t, res.IsError, resultText(t, res))
	assert.Contains(t, resultText(t, res), "minutes.txt")

	payload := structured(t, res)
	assert.Equal(t, float64(1), payload["total_items"])
	items, ok := payload["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 1)
	assert.Equal(t, "minutes.txt", items[0].(map[string]any)["name"])
}

func TestMCPResultsCarryInvocationID(t *testing.T) {
	cs := connectMCPClient(t, setupTestEnv(t))

	seen := map[string]bool{}
	for range 3 {
		res := callTool(t, cs, tools.ToolRepositoryInfo, nil)
		require.False(t, res.IsError)
		id, _ := res.Meta[MetaInvocationID].(string)
		require.NotEmpty(t, id)
		assert.False(t, seen[id], "invocation id %s reused", id)
		seen[id] = true
	}
}

func TestInvocationIDFromContext(t *testing.T) {
	assert.Empty(t, InvocationID(context.Background()))

	var got string
	err := observeToolCall(context.Background(), nil, logger.Nop(), "test", "x", func(ctx context.Context) error {
		got = InvocationID(ctx)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, got, 36)
}

func TestMCPCheckoutRoundTrip(t *testing.T) {
	env := setupTestEnv(t)
	doc, err := env.repo.AddDocument(repository.SharedRoot, "plan.txt", []byte("v1"), true, nil)
	require.NoError(t, err)
	cs := connectMCPClient(t, env)

	res := callTool(t, cs, tools.ToolCheckoutDocument, map[string]any{"node_id": doc.ID.String()})
	require.False(t, res.IsError, resultText(t, res))
	assert.Equal(t, "checked_out_by_caller", structured(t, res)["state"])

	res = callTool(t, cs, tools.ToolCheckinDocument, map[string]any{"node_id": doc.ID.String(), "comment": "edits"})
	require.False(t, res.IsError, resultText(t, res))
	payload := structured(t, res)
	assert.Equal(t, "available", payload["state"])
	assert.NotEmpty(t, payload["version_label"])

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.ToolCallsTotal.WithLabelValues(tools.ToolCheckinDocument, "test", "success")))
}

func TestMCPToolErrorsCarryEnvelope(t *testing.T) {
	env := setupTestEnv(t)
	doc, err := env.repo.AddDocument(repository.SharedRoot, "idle.txt", []byte("x"), true, nil)
	require.NoError(t, err)
	cs := connectMCPClient(t, env)

	res := callTool(t, cs, tools.ToolCheckinDocument, map[string]any{"node_id": doc.ID.String()})
	errObj := errorEnvelope(t, res)
	assert.Equal(t, "not_checked_out", errObj["kind"])
	assert.Equal(t, false, errObj["retryable"])
	assert.Equal(t, false, errObj["requery_state"])
	assert.NotEmpty(t, errObj["message"])

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.ToolCallsTotal.WithLabelValues(tools.ToolCheckinDocument, "test", "not_checked_out")))
}

func TestMCPIndeterminateRequestsRequery(t *testing.T) {
	env := setupTestEnv(t)
	doc, err := env.repo.AddDocument(repository.SharedRoot, "slow.txt", []byte("x"), true, nil)
	require.NoError(t, err)
	cs := connectMCPClient(t, env)

	res := callTool(t, cs, tools.ToolCheckoutDocument, map[string]any{"node_id": doc.ID.String(), "download_for_editing": false})
	require.False(t, res.IsError, resultText(t, res))

	env.repo.FailNext("create_version", repository.ErrTimeout)
	res = callTool(t, cs, tools.ToolCheckinDocument, map[string]any{"node_id": doc.ID.String()})
	errObj := errorEnvelope(t, res)
	assert.Equal(t, "indeterminate", errObj["kind"])
	assert.Equal(t, true, errObj["requery_state"])
	assert.Contains(t, errObj["message"], "OUTCOME UNKNOWN")
}

func TestMCPEmptyQueryMakesNoBackendCall(t *testing.T) {
	env := setupTestEnv(t)
	cs := connectMCPClient(t, env)

	res := callTool(t, cs, tools.ToolSearchContent, map[string]any{"query": "   "})
	errObj := errorEnvelope(t, res)
	assert.Equal(t, "empty_query", errObj["kind"])
	assert.Equal(t, 0, env.repo.Calls("search"))
}

func TestMCPMissingQueryReportsEmptyQuery(t *testing.T) {
	env := setupTestEnv(t)
	cs := connectMCPClient(t, env)

	res := callTool(t, cs, tools.ToolSearchContent, map[string]any{})
	errObj := errorEnvelope(t, res)
	assert.Equal(t, "empty_query", errObj["kind"])
	assert.Equal(t, 0, env.repo.Calls("search"))

	res = callTool(t, cs, tools.ToolSearchByMetadata, map[string]any{"comparison": "equals"})
	assert.Equal(t, "empty_query", errorEnvelope(t, res)["kind"])
	assert.Equal(t, 0, env.repo.Calls("search"))
}

func TestMCPMissingNodeIDReportsValidationError(t *testing.T) {
	cs := connectMCPClient(t, setupTestEnv(t))

	for _, name := range []string{
		tools.ToolCheckoutDocument,
		tools.ToolCheckinDocument,
		tools.ToolCancelCheckout,
		tools.ToolGetNodeProperties,
		tools.ToolDeleteNode,
		tools.ToolDownloadDocument,
	} {
		res := callTool(t, cs, name, map[string]any{})
		errObj := errorEnvelope(t, res)
		assert.Equal(t, "validation_error", errObj["kind"], name)
		assert.Equal(t, false, errObj["requery_state"], name)
	}

	res := callTool(t, cs, tools.ToolCreateFolder, map[string]any{})
	assert.Equal(t, "validation_error", errorEnvelope(t, res)["kind"])
}
