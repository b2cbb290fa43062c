// Package telemetry configures OpenTelemetry tracing export
package telemetry

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName is reported as the OpenTelemetry service.name
const ServiceName = "contentmcp"

// Provider owns the tracer provider installed by Setup
type Provider struct {
	tp  *sdktrace.TracerProvider
	log zerolog.Logger
}

// Tracer returns a named tracer from the global provider
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}

// Enabled reports whether spans are exported
func (p *Provider) Enabled() bool {
	return p != nil && p.tp != nil
}

// Shutdown flushes pending spans
func (p *Provider) Shutdown(ctx context.Context) error {
	if !p.Enabled() {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("telemetry: trace shutdown: %w", err)
	}
	p.log.Info().Msg("telemetry shutdown complete")
	return nil
}

type errorHandler struct {
	log zerolog.Logger
}

func (h errorHandler) Handle(err error) {
	if err == nil {
		return
	}
	h.log.Warn().Err(err).Msg("telemetry exporter error")
}

// Setup installs W3C propagation and, when endpoint is set, an OTLP trace
// exporter. An empty endpoint yields a Provider that exports nothing.
func Setup(ctx context.Context, endpoint string, log zerolog.Logger) (*Provider, error) {
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)
	p := &Provider{log: log}
	if strings.TrimSpace(endpoint) == "" {
		return p, nil
	}

	target, err := resolveTarget(endpoint)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(semconv.ServiceName(ServiceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch target.protocol {
	case "grpc":
		opts := []otlptracegrpc.Option{
			otlptracegrpc.WithEndpoint(target.endpoint),
			otlptracegrpc.WithTimeout(10 * time.Second),
		}
		if target.insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	default:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(target.endpoint),
			otlptracehttp.WithTimeout(10 * time.Second),
		}
		if target.insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if target.path != "" && target.path != "/" {
			opts = append(opts, otlptracehttp.WithURLPath(target.path))
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("telemetry: start trace exporter (%s): %w", target.protocol, err)
	}

	p.tp = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(1.0))),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(p.tp)
	otel.SetErrorHandler(errorHandler{log: log})
	log.Info().
		Str("protocol", target.protocol).
		Str("endpoint", target.endpoint).
		Bool("insecure", target.insecure).
		Msg("trace export enabled")
	return p, nil
}

type otlpTarget struct {
	protocol string
	endpoint string
	path     string
	insecure bool
}

// resolveTarget accepts host[:port] (plain gRPC) or a grpc, grpcs, http or
// https URL.
func resolveTarget(raw string) (otlpTarget, error) {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		endpoint := raw
		if !strings.Contains(endpoint, ":") {
			endpoint = net.JoinHostPort(endpoint, "4317")
		}
		return otlpTarget{protocol: "grpc", endpoint: endpoint, insecure: true}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return otlpTarget{}, fmt.Errorf("telemetry: parse endpoint: %w", err)
	}
	t := otlpTarget{endpoint: u.Host, path: strings.TrimSuffix(u.Path, "/")}
	defaultPort := "4318"
	switch strings.ToLower(u.Scheme) {
	case "grpc":
		t.protocol, t.insecure, defaultPort = "grpc", true, "4317"
	case "grpcs":
		t.protocol, defaultPort = "grpc", "4317"
	case "http":
		t.protocol, t.insecure = "http", true
	case "https":
		t.protocol = "http"
	default:
		return otlpTarget{}, fmt.Errorf("telemetry: unknown scheme %q", u.Scheme)
	}
	if t.endpoint == "" {
		return otlpTarget{}, fmt.Errorf("telemetry: missing endpoint host")
	}
	if u.Port() == "" {
		t.endpoint = net.JoinHostPort(u.Hostname(), defaultPort)
	}
	return t, nil
}
