package server

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nainya/contentmcp/pkg/repository"
	"github.com/nainya/contentmcp/pkg/tools"
)

func TestMCPListsRepositoryInfoResource(t *testing.T) {
	cs := connectMCPClient(t, setupTestEnv(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := cs.ListResources(ctx, nil)
	require.NoError(t, err)
	require.Len(t, res.Resources, 1)
	assert.Equal(t, repositoryInfoURI, res.Resources[0].URI)
}

func TestMCPReadRepositoryInfoResource(t *testing.T) {
	cs := connectMCPClient(t, setupTestEnv(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := cs.ReadResource(ctx, &mcpsdk.ReadResourceParams{URI: repositoryInfoURI})
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)
	assert.Equal(t, "application/json", res.Contents[0].MIMEType)

	var info tools.RepositoryInfoOutput
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &info))
	assert.Equal(t, "memory", info.ID)
	assert.Equal(t, "Embedded", info.Edition)
	assert.Equal(t, "alice", info.User)
}

func TestMCPRepositoryInfoResourceCarriesFaultKind(t *testing.T) {
	env := setupTestEnv(t)
	cs := connectMCPClient(t, env)
	env.repo.FailNext("repository_info", repository.ErrUnavailable)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := cs.ReadResource(ctx, &mcpsdk.ReadResourceParams{URI: repositoryInfoURI})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend_unavailable")
}

func TestMCPSearchAndAnalyzePrompt(t *testing.T) {
	cs := connectMCPClient(t, setupTestEnv(t))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	list, err := cs.ListPrompts(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list.Prompts, 1)
	assert.Equal(t, searchAndAnalyzePrompt, list.Prompts[0].Name)

	res, err := cs.GetPrompt(ctx, &mcpsdk.GetPromptParams{
		Name:      searchAndAnalyzePrompt,
		Arguments: map[string]string{"query": "budget", "analysis_type": "compliance"},
	})
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	text, ok := res.Messages[0].Content.(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, `"budget"`)
	assert.Contains(t, text.Text, tools.ToolSearchContent)
	assert.Contains(t, text.Text, "Risk assessment")

	_, err = cs.GetPrompt(ctx, &mcpsdk.GetPromptParams{Name: searchAndAnalyzePrompt})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty_query")
}

func TestSearchAndAnalyzeText(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		analysisType string
		want         string
		wantKind     string
	}{
		{name: "default summary", query: "minutes", want: "Quick insights"},
		{name: "detailed", query: "minutes", analysisType: "detailed", want: "Related search suggestions"},
		{name: "trends case-insensitive", query: "minutes", analysisType: "Trends", want: "Version history insights"},
		{name: "blank query", query: "  ", wantKind: "empty_query"},
		{name: "unknown type", query: "minutes", analysisType: "sentiment", wantKind: "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := searchAndAnalyzeText(tt.query, tt.analysisType)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, classifyToolError(err).Kind)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, text, tt.want)
		})
	}
}
