package server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nainya/contentmcp/pkg/faults"
	"github.com/nainya/contentmcp/pkg/tools"
)

const (
	repositoryInfoURI = "alfresco://repository/info"

	searchAndAnalyzePrompt = "search_and_analyze"
	defaultAnalysisType    = "summary"
)

// analysisSteps lists what each analysis type asks for after the search
var analysisSteps = map[string][]string{
	"summary": {
		"Document count and types",
		"Key themes and topics",
		"Most relevant documents",
		"Quick insights",
	},
	"detailed": {
		"Comprehensive document inventory",
		"Metadata analysis (dates, authors, sizes)",
		"Content categorization",
		"Compliance status",
		"Recommended actions",
		"Related search suggestions",
	},
	"trends": {
		"Temporal patterns (creation/modification dates)",
		"Document lifecycle analysis",
		"Usage and access patterns",
		"Version history insights",
		"Storage optimization recommendations",
	},
	"compliance": {
		"Document retention analysis",
		"Security classification review",
		"Access permissions audit",
		"Regulatory compliance status",
		"Risk assessment",
		"Remediation recommendations",
	},
}

var analysisTypes = []string{"summary", "detailed", "trends", "compliance"}

func (s *MCPServer) registerResources() {
	s.srv.AddResource(&mcpsdk.Resource{
		URI:         repositoryInfoURI,
		Name:        "repository_info",
		Title:       "Repository information",
		Description: "Live repository information: edition, version, status flags and installed modules",
		MIMEType:    "application/json",
	}, s.handleRepositoryInfoResource)
}

func (s *MCPServer) handleRepositoryInfoResource(ctx context.Context, req *mcpsdk.ReadResourceRequest) (*mcpsdk.ReadResourceResult, error) {
	uri := ""
	if req != nil && req.Params != nil {
		uri = strings.TrimSpace(req.Params.URI)
	}
	if uri != repositoryInfoURI {
		return nil, mcpsdk.ResourceNotFoundError(uri)
	}
	var out *tools.RepositoryInfoOutput
	err := s.observe(ctx, tools.ToolRepositoryInfo, func(ctx context.Context) error {
		var err error
		out, err = s.facade.RepositoryInfo(ctx, tools.RepositoryInfoInput{})
		return err
	})
	if err != nil {
		return nil, toolError{Envelope: classifyToolError(err)}
	}
	body, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, toolError{Envelope: classifyToolError(faults.Internal("encoding repository information", err))}
	}
	return &mcpsdk.ReadResourceResult{
		Contents: []*mcpsdk.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}

func (s *MCPServer) registerPrompts() {
	s.srv.AddPrompt(&mcpsdk.Prompt{
		Name:        searchAndAnalyzePrompt,
		Title:       "Search and analyze",
		Description: "Search for documents and walk through a summary, detailed, trends or compliance analysis of the results",
		Arguments: []*mcpsdk.PromptArgument{
			{Name: "query", Description: "Search terms for search_content", Required: true},
			{Name: "analysis_type", Description: "summary (default), detailed, trends or compliance"},
		},
	}, handleSearchAndAnalyze)
}

func handleSearchAndAnalyze(_ context.Context, req *mcpsdk.GetPromptRequest) (*mcpsdk.GetPromptResult, error) {
	var args map[string]string
	if req != nil && req.Params != nil {
		args = req.Params.Arguments
	}
	text, err := searchAndAnalyzeText(args["query"], args["analysis_type"])
	if err != nil {
		return nil, toolError{Envelope: classifyToolError(err)}
	}
	return &mcpsdk.GetPromptResult{
		Description: "Document search and analysis workflow",
		Messages: []*mcpsdk.PromptMessage{{
			Role:    "user",
			Content: &mcpsdk.TextContent{Text: text},
		}},
	}, nil
}

// searchAndAnalyzeText renders the analysis workflow for query
func searchAndAnalyzeText(query, analysisType string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", faults.EmptyQuery("query")
	}
	analysisType = strings.ToLower(strings.TrimSpace(analysisType))
	if analysisType == "" {
		analysisType = defaultAnalysisType
	}
	steps, ok := analysisSteps[analysisType]
	if !ok {
		return "", faults.Validation("analysis_type must be one of [%s], got %q",
			strings.Join(analysisTypes, " "), analysisType)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Document Analysis Request**\n\n")
	fmt.Fprintf(&b, "Please search for documents matching %q and provide a %s analysis.\n\n", query, analysisType)
	fmt.Fprintf(&b, "**Step 1: Search**\nUse the `%s` tool to find relevant documents.\n\n", tools.ToolSearchContent)
	b.WriteString("**Step 2: Analysis**\nBased on the search results, provide:\n")
	for _, step := range steps {
		fmt.Fprintf(&b, "- %s\n", step)
	}
	fmt.Fprintf(&b, "\n**Step 3: Recommendations**\nProvide actionable insights and next steps based on the %s analysis.\n", analysisType)
	return b.String(), nil
}
