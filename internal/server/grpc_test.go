// Integration tests for the gRPC tool service
package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/nainya/contentmcp/internal/logger"
	"github.com/nainya/contentmcp/pkg/faults"
	"github.com/nainya/contentmcp/pkg/repository"
	"github.com/nainya/contentmcp/pkg/tools"
)

const bufSize = 1024 * 1024

func setupGRPC(t *testing.T, env *testEnv) *grpc.ClientConn {
	t.Helper()
	srv, err := NewGRPCServer(env.facade, env.metrics, logger.Nop())
	require.NoError(t, err)

	lis := bufconn.Listen(bufSize)
	go func() {
		_ = srv.Serve(lis)
	}()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		srv.Stop()
		_ = lis.Close()
	})
	return conn
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestGRPCInvokeRepositoryInfo(t *testing.T) {
	env := setupTestEnv(t)
	conn := setupGRPC(t, env)

	out, err := InvokeTool(testContext(t), conn, tools.ToolRepositoryInfo, nil)
	require.NoError(t, err)
	assert.Equal(t, tools.ToolRepositoryInfo, out.Fields["tool"].GetStringValue())
	assert.NotEmpty(t, out.Fields["summary"].GetStringValue())
	result := out.Fields["result"].GetStructValue()
	require.NotNil(t, result)
	assert.Equal(t, "alice", result.Fields["user"].GetStringValue())

	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.GrpcRequestsTotal.WithLabelValues(InvokeMethod, "OK")))
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.ToolCallsTotal.WithLabelValues(tools.ToolRepositoryInfo, "grpc", "success")))
}

func TestGRPCInvokeWithArguments(t *testing.T) {
	env := setupTestEnv(t)
	conn := setupGRPC(t, env)

	out, err := InvokeTool(testContext(t), conn, tools.ToolCreateFolder, map[string]any{
		"folder_name": "Contracts",
		"parent_id":   "-shared-",
	})
	require.NoError(t, err)
	node := out.Fields["result"].GetStructValue().Fields["node"].GetStructValue()
	require.NotNil(t, node)
	assert.Equal(t, "Contracts", node.Fields["name"].GetStringValue())
	assert.True(t, node.Fields["is_folder"].GetBoolValue())

	out, err = InvokeTool(testContext(t), conn, tools.ToolBrowseRepository, map[string]any{
		"node_id":   "-shared-",
		"max_items": 5,
	})
	require.NoError(t, err)
	assert.Equal(t, float64(1), out.Fields["result"].GetStructValue().Fields["total_items"].GetNumberValue())
}

func TestGRPCInvokeCarriesInvocationID(t *testing.T) {
	env := setupTestEnv(t)
	conn := setupGRPC(t, env)

	var header, trailer metadata.MD
	out, err := InvokeTool(testContext(t), conn, tools.ToolRepositoryInfo, nil, grpc.Header(&header))
	require.NoError(t, err)
	id := out.Fields["invocation_id"].GetStringValue()
	require.NotEmpty(t, id)
	assert.Equal(t, []string{id}, header.Get(HeaderInvocationID))

	header = nil
	_, err = InvokeTool(testContext(t), conn, tools.ToolGetNodeProperties,
		map[string]any{"node_id": "missing"}, grpc.Header(&header), grpc.Trailer(&trailer))
	require.Error(t, err)
	failed := header.Get(HeaderInvocationID)
	require.Len(t, failed, 1)
	assert.NotEqual(t, id, failed[0])
	assert.Equal(t, []string{string(faults.KindNodeNotFound)}, trailer.Get(TrailerErrorKind))
}

func TestGRPCFaultCodes(t *testing.T) {
	env := setupTestEnv(t)
	doc, err := env.repo.AddDocument(repository.SharedRoot, "held.txt", []byte("x"), true, nil)
	require.NoError(t, err)
	require.NoError(t, env.repo.ForceLock(doc.ID, "bob"))
	conn := setupGRPC(t, env)

	var trailer metadata.MD
	_, err = InvokeTool(testContext(t), conn, tools.ToolCheckoutDocument,
		map[string]any{"node_id": doc.ID.String()}, grpc.Trailer(&trailer))
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, []string{"already_checked_out"}, trailer.Get(TrailerErrorKind))
	assert.Equal(t, []string{"false"}, trailer.Get(TrailerRequeryState))

	_, err = InvokeTool(testContext(t), conn, tools.ToolGetNodeProperties, map[string]any{"node_id": "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = InvokeTool(testContext(t), conn, tools.ToolSearchContent, map[string]any{"query": ""})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = InvokeTool(testContext(t), conn, "format_disk", nil)
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = InvokeTool(testContext(t), conn, "", nil)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCHealth(t *testing.T) {
	conn := setupGRPC(t, setupTestEnv(t))

	resp, err := healthpb.NewHealthClient(conn).Check(testContext(t), &healthpb.HealthCheckRequest{Service: ToolServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}

func TestFaultCodeTable(t *testing.T) {
	cases := map[faults.Kind]codes.Code{
		faults.KindValidation:            codes.InvalidArgument,
		faults.KindEmptyQuery:            codes.InvalidArgument,
		faults.KindUnknownPreset:         codes.InvalidArgument,
		faults.KindInvalidComparison:     codes.InvalidArgument,
		faults.KindNodeNotFound:          codes.NotFound,
		faults.KindAlreadyCheckedOut:     codes.FailedPrecondition,
		faults.KindNotCheckedOut:         codes.FailedPrecondition,
		faults.KindVersioningUnsupported: codes.Unimplemented,
		faults.KindBackendUnavailable:    codes.Unavailable,
		faults.KindIndeterminate:         codes.Unknown,
		faults.KindInternal:              codes.Internal,
	}
	for kind, want := range cases {
		assert.Equal(t, want, FaultCode(kind), string(kind))
	}
}
