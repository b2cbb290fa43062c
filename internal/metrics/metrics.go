// Package metrics provides Prometheus metrics for the content tool server
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nainya/contentmcp/pkg/faults"
)

// Metrics holds all Prometheus metrics of the server
type Metrics struct {
	// Tool metrics, labelled by transport and outcome kind
	ToolCallsTotal    *prometheus.CounterVec
	ToolCallDuration  *prometheus.HistogramVec
	ToolCallsInFlight prometheus.Gauge

	// gRPC transport metrics
	GrpcRequestsTotal    *prometheus.CounterVec
	GrpcRequestDuration  *prometheus.HistogramVec
	GrpcRequestsInFlight prometheus.Gauge

	// Repository call metrics
	RepoCallsTotal   *prometheus.CounterVec
	RepoCallDuration *prometheus.HistogramVec

	// Search metrics
	SearchQueriesTotal *prometheus.CounterVec
	SearchResultsTotal *prometheus.CounterVec
	SearchDuration     *prometheus.HistogramVec

	// Lifecycle metrics
	LifecycleOpsTotal  *prometheus.CounterVec
	LifecycleDuration  *prometheus.HistogramVec
	IndeterminateTotal *prometheus.CounterVec

	// Server metrics
	ServerUptimeSeconds prometheus.Gauge
	ServerStartTime     time.Time

	stop chan struct{}
}

// NewMetrics creates the metrics and registers them with reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	m := &Metrics{
		ServerStartTime: time.Now(),
		stop:            make(chan struct{}),
	}

	m.ToolCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentmcp_tool_calls_total",
			Help: "Total number of tool calls",
		},
		[]string{"tool", "transport", "outcome"},
	)

	m.ToolCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentmcp_tool_call_duration_seconds",
			Help:    "Duration of tool calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	m.ToolCallsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "contentmcp_tool_calls_in_flight",
			Help: "Number of tool calls currently being processed",
		},
	)

	m.GrpcRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentmcp_grpc_requests_total",
			Help: "Total number of gRPC requests",
		},
		[]string{"method", "status"},
	)

	m.GrpcRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentmcp_grpc_request_duration_seconds",
			Help:    "Duration of gRPC requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	m.GrpcRequestsInFlight = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "contentmcp_grpc_requests_in_flight",
			Help: "Number of gRPC requests currently being processed",
		},
	)

	m.RepoCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentmcp_repository_calls_total",
			Help: "Total number of content repository calls",
		},
		[]string{"operation", "status"},
	)

	m.RepoCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentmcp_repository_call_duration_seconds",
			Help:    "Duration of content repository calls in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	m.SearchQueriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentmcp_search_queries_total",
			Help: "Total number of search queries by request variant",
		},
		[]string{"variant", "outcome"},
	)

	m.SearchResultsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentmcp_search_results_total",
			Help: "Total number of search results returned",
		},
		[]string{"variant"},
	)

	m.SearchDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentmcp_search_duration_seconds",
			Help:    "Duration of searches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"variant"},
	)

	m.LifecycleOpsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentmcp_lifecycle_operations_total",
			Help: "Total number of checkout, checkin and cancel operations",
		},
		[]string{"operation", "outcome"},
	)

	m.LifecycleDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "contentmcp_lifecycle_duration_seconds",
			Help:    "Duration of lifecycle operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	m.IndeterminateTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contentmcp_indeterminate_outcomes_total",
			Help: "Mutations whose remote outcome could not be confirmed",
		},
		[]string{"operation"},
	)

	m.ServerUptimeSeconds = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "contentmcp_server_uptime_seconds",
			Help: "Server uptime in seconds",
		},
	)

	go m.updateUptime()

	return m
}

// Close stops the uptime updater
func (m *Metrics) Close() {
	select {
	case <-m.stop:
	default:
		close(m.stop)
	}
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.ServerUptimeSeconds.Set(time.Since(m.ServerStartTime).Seconds())
		case <-m.stop:
			return
		}
	}
}

// RecordToolCall records a tool call with its outcome kind ("success" on success)
func (m *Metrics) RecordToolCall(tool, transport, outcome string, duration time.Duration) {
	m.ToolCallsTotal.WithLabelValues(tool, transport, outcome).Inc()
	m.ToolCallDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordGrpcRequest records a gRPC request with its status
func (m *Metrics) RecordGrpcRequest(method string, status string, duration time.Duration) {
	m.GrpcRequestsTotal.WithLabelValues(method, status).Inc()
	m.GrpcRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRepoCall records a content repository call
func (m *Metrics) RecordRepoCall(operation string, status string, duration time.Duration) {
	m.RepoCallsTotal.WithLabelValues(operation, status).Inc()
	m.RepoCallDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSearch records a search by variant
func (m *Metrics) RecordSearch(variant, outcome string, results int, duration time.Duration) {
	m.SearchQueriesTotal.WithLabelValues(variant, outcome).Inc()
	m.SearchResultsTotal.WithLabelValues(variant).Add(float64(results))
	m.SearchDuration.WithLabelValues(variant).Observe(duration.Seconds())
}

// RecordLifecycle records a lifecycle operation
func (m *Metrics) RecordLifecycle(operation, outcome string, duration time.Duration) {
	m.LifecycleOpsTotal.WithLabelValues(operation, outcome).Inc()
	m.LifecycleDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if outcome == string(faults.KindIndeterminate) {
		m.IndeterminateTotal.WithLabelValues(operation).Inc()
	}
}
