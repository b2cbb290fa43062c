// Package server hosts the content tools over MCP and gRPC and serves
// observability endpoints
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	"github.com/nainya/contentmcp/internal/logger"
	"github.com/nainya/contentmcp/internal/metrics"
	"github.com/nainya/contentmcp/pkg/faults"
	"github.com/nainya/contentmcp/pkg/tools"
)

const instructions = `Tools for a content repository. Search with search_content, advanced_search,
search_by_metadata or cmis_search; navigate with browse_repository. Edit a document by
checkout_document, then checkin_document (or cancel_checkout). Errors carry a stable "kind";
when "requery_state" is true, read the node with get_node_properties before retrying.`

var tracer = otel.Tracer("github.com/nainya/contentmcp/internal/server")

// MCPConfig configures the MCP host
type MCPConfig struct {
	Facade    *tools.Facade
	Metrics   *metrics.Metrics // optional
	Logger    *logger.Logger
	Transport string // label for metrics and logs
	Version   string
}

// MCPServer exposes the tool facade as MCP tools, plus the repository
// information resource and the search-and-analyze prompt
type MCPServer struct {
	facade    *tools.Facade
	metrics   *metrics.Metrics
	log       *logger.Logger
	transport string
	srv       *mcpsdk.Server
}

// NewMCPServer registers every tool on a new MCP server
func NewMCPServer(cfg MCPConfig) (*MCPServer, error) {
	if cfg.Facade == nil {
		return nil, errors.New("server: tool facade is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	s := &MCPServer{
		facade:    cfg.Facade,
		metrics:   cfg.Metrics,
		log:       cfg.Logger,
		transport: cfg.Transport,
	}
	s.srv = mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "contentmcp",
		Version: cfg.Version,
	}, &mcpsdk.ServerOptions{
		Instructions: instructions,
	})
	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s, nil
}

// Server returns the underlying MCP server
func (s *MCPServer) Server() *mcpsdk.Server {
	return s.srv
}

func (s *MCPServer) registerTools() {
	f := s.facade
	addTool(s, tools.ToolSearchContent, f.SearchContent)
	addTool(s, tools.ToolAdvancedSearch, f.AdvancedSearch)
	addTool(s, tools.ToolSearchByMetadata, f.SearchByMetadata)
	addTool(s, tools.ToolCMISSearch, f.CMISSearch)
	addTool(s, tools.ToolBrowseRepository, f.BrowseRepository)
	addTool(s, tools.ToolRepositoryInfo, f.RepositoryInfo)
	addTool(s, tools.ToolUploadDocument, f.UploadDocument)
	addTool(s, tools.ToolDownloadDocument, f.DownloadDocument)
	addTool(s, tools.ToolCreateFolder, f.CreateFolder)
	addTool(s, tools.ToolGetNodeProperties, f.GetNodeProperties)
	addTool(s, tools.ToolUpdateNodeProperties, f.UpdateNodeProperties)
	addTool(s, tools.ToolDeleteNode, f.DeleteNode)
	addTool(s, tools.ToolCheckoutDocument, f.CheckoutDocument)
	addTool(s, tools.ToolCheckinDocument, f.CheckinDocument)
	addTool(s, tools.ToolCancelCheckout, f.CancelCheckout)
}

// addTool registers fn under name. The summary becomes the text content and
// the result struct the structured content.
func addTool[In, Out any, P interface {
	*Out
	tools.Output
}](s *MCPServer, name string, fn func(context.Context, In) (P, error)) {
	handler := func(ctx context.Context, _ *mcpsdk.CallToolRequest, in In) (*mcpsdk.CallToolResult, Out, error) {
		var (
			zero Out
			out  P
			id   string
		)
		err := s.observe(ctx, name, func(ctx context.Context) error {
			id = InvocationID(ctx)
			var err error
			out, err = fn(ctx, in)
			return err
		})
		if err != nil {
			return nil, zero, err
		}
		return &mcpsdk.CallToolResult{
			Meta:    mcpsdk.Meta{MetaInvocationID: id},
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: out.SummaryText()}},
		}, *out, nil
	}
	mcpsdk.AddTool(s.srv, &mcpsdk.Tool{
		Name:        name,
		Description: tools.Description(name),
	}, withStructuredToolErrors(handler))
}

// observe wraps one tool call with a span, metrics and a log line
func (s *MCPServer) observe(ctx context.Context, name string, call func(context.Context) error) error {
	return observeToolCall(ctx, s.metrics, s.log, s.transport, name, call)
}

// observeToolCall gives the call a fresh invocation id, readable from the
// context passed to call through InvocationID
func observeToolCall(ctx context.Context, m *metrics.Metrics, log *logger.Logger, transport, name string, call func(context.Context) error) error {
	id := uuid.NewString()
	ctx = context.WithValue(ctx, invocationIDKey{}, id)
	ctx, span := tracer.Start(ctx, "tool "+name)
	defer span.End()
	span.SetAttributes(
		attribute.String("contentmcp.tool", name),
		attribute.String("contentmcp.transport", transport),
		attribute.String("contentmcp.invocation_id", id),
	)
	if m != nil {
		m.ToolCallsInFlight.Inc()
		defer m.ToolCallsInFlight.Dec()
	}

	start := time.Now()
	err := call(ctx)
	duration := time.Since(start)

	outcome := "success"
	if err != nil {
		kind := faults.KindOf(err)
		outcome = string(kind)
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, outcome)
		span.SetAttributes(attribute.Bool("contentmcp.requery_state", faults.RequiresRequery(err)))
	}
	if m != nil {
		m.RecordToolCall(name, transport, outcome, duration)
	}
	log.LogToolCall(transport, name, id, duration, err)
	return err
}

type invocationIDKey struct{}

// MetaInvocationID is the result metadata key carrying the invocation id
const MetaInvocationID = "contentmcp/invocation_id"

// InvocationID returns the id of the tool invocation running in ctx
func InvocationID(ctx context.Context) string {
	id, _ := ctx.Value(invocationIDKey{}).(string)
	return id
}

// ServeStdio runs the MCP session over stdin/stdout until the client
// disconnects or ctx is canceled.
func (s *MCPServer) ServeStdio(ctx context.Context) error {
	s.log.LogServerReady("stdio", "")
	err := s.srv.Run(ctx, &mcpsdk.StdioTransport{})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("mcp stdio: %w", err)
	}
	return nil
}

// Handler returns the streamable HTTP handler for the server
func (s *MCPServer) Handler() http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(_ *http.Request) *mcpsdk.Server {
		return s.srv
	}, nil)
}

// ServeHTTP serves the streamable HTTP transport on ln at path until ctx is
// canceled, then shuts down gracefully.
func (s *MCPServer) ServeHTTP(ctx context.Context, ln net.Listener, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, s.Handler())
	httpSrv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.Serve(ln)
	}()
	s.log.LogServerReady("http", ln.Addr().String()+path)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mcp http: %w", err)
	}
}
