// Observability middleware and HTTP server for metrics and profiling
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/nainya/contentmcp/internal/logger"
	"github.com/nainya/contentmcp/internal/metrics"
)

// GrpcMetricsInterceptor creates a gRPC interceptor for metrics and logging
func GrpcMetricsInterceptor(m *metrics.Metrics, log *logger.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		if m != nil {
			m.GrpcRequestsInFlight.Inc()
			defer m.GrpcRequestsInFlight.Dec()
		}

		resp, err := handler(ctx, req)

		duration := time.Since(start)
		code := status.Code(err).String()
		if m != nil {
			m.RecordGrpcRequest(info.FullMethod, code, duration)
		}
		log.LogGrpcRequest(info.FullMethod, code, duration, err)

		return resp, err
	}
}

// ReadinessFunc reports whether the server can take traffic
type ReadinessFunc func(ctx context.Context) error

// ObservabilityConfig configures the observability endpoints
type ObservabilityConfig struct {
	Addr        string
	Gatherer    prometheus.Gatherer // nil uses the default registry
	EnablePprof bool
	Ready       ReadinessFunc // nil is always ready
}

// ObservabilityServer provides HTTP endpoints for metrics and profiling
type ObservabilityServer struct {
	server *http.Server
	log    *logger.Logger
}

// NewObservabilityServer creates a new HTTP server for observability
func NewObservabilityServer(cfg ObservabilityConfig, log *logger.Logger) *ObservabilityServer {
	if log == nil {
		log = logger.Nop()
	}
	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy","service":"contentmcp"}`))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if cfg.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			if err := cfg.Ready(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = fmt.Fprintf(w, `{"status":"not_ready","reason":%q}`, err.Error())
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	if cfg.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &ObservabilityServer{
		server: server,
		log:    log,
	}
}

// Handler returns the endpoint mux
func (o *ObservabilityServer) Handler() http.Handler {
	return o.server.Handler
}

// Start listens on the configured address and serves until Shutdown
func (o *ObservabilityServer) Start() error {
	ln, err := net.Listen("tcp", o.server.Addr)
	if err != nil {
		return fmt.Errorf("observability listen: %w", err)
	}
	return o.Serve(ln)
}

// Serve serves the endpoints on ln until Shutdown
func (o *ObservabilityServer) Serve(ln net.Listener) error {
	o.log.Info("observability endpoints available").
		Str("metrics", fmt.Sprintf("http://%s/metrics", ln.Addr())).
		Str("health", fmt.Sprintf("http://%s/health", ln.Addr())).
		Send()

	if err := o.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("observability server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the observability server
func (o *ObservabilityServer) Shutdown(ctx context.Context) error {
	o.log.Info("shutting down observability server").Send()
	return o.server.Shutdown(ctx)
}
