package telemetry

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	p, err := Setup(context.Background(), "", zerolog.Nop())
	require.NoError(t, err)
	assert.False(t, p.Enabled())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetupHTTPExporter(t *testing.T) {
	// exporters connect lazily, so no collector is needed
	p, err := Setup(context.Background(), "http://127.0.0.1:4318/v1/traces", zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, p.Enabled())
	assert.NotNil(t, Tracer("test"))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestResolveTarget(t *testing.T) {
	cases := []struct {
		raw  string
		want otlpTarget
	}{
		{"collector", otlpTarget{protocol: "grpc", endpoint: "collector:4317", insecure: true}},
		{"collector:5000", otlpTarget{protocol: "grpc", endpoint: "collector:5000", insecure: true}},
		{"grpcs://collector", otlpTarget{protocol: "grpc", endpoint: "collector:4317"}},
		{"http://collector/v1/traces", otlpTarget{protocol: "http", endpoint: "collector:4318", path: "/v1/traces", insecure: true}},
		{"https://collector:443", otlpTarget{protocol: "http", endpoint: "collector:443"}},
	}
	for _, tc := range cases {
		got, err := resolveTarget(tc.raw)
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got, tc.raw)
	}

	_, err := resolveTarget("ftp://collector")
	assert.Error(t, err)
	_, err = resolveTarget("http://")
	assert.Error(t, err)
}
