package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m := NewMetrics(prometheus.NewRegistry())
	t.Cleanup(m.Close)
	return m
}

func TestRecordToolCall(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordToolCall("search_content", "stdio", "success", 5*time.Millisecond)
	m.RecordToolCall("search_content", "stdio", "empty_query", time.Millisecond)
	m.RecordToolCall("search_content", "stdio", "success", time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("search_content", "stdio", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ToolCallsTotal.WithLabelValues("search_content", "stdio", "empty_query")))
}

func TestRecordSearch(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordSearch("metadata", "success", 3, time.Millisecond)
	m.RecordSearch("metadata", "success", 4, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("metadata", "success")))
	assert.Equal(t, float64(7), testutil.ToFloat64(m.SearchResultsTotal.WithLabelValues("metadata")))
}

func TestRecordLifecycleCountsIndeterminate(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordLifecycle("checkin", "success", time.Millisecond)
	m.RecordLifecycle("checkin", "indeterminate", time.Millisecond)
	m.RecordLifecycle("checkout", "already_checked_out", time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.LifecycleOpsTotal.WithLabelValues("checkin", "indeterminate")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.IndeterminateTotal.WithLabelValues("checkin")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.IndeterminateTotal.WithLabelValues("checkout")))
}

func TestRecordRepoCall(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordRepoCall("lock", "ok", time.Millisecond)
	m.RecordRepoCall("lock", "locked", time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RepoCallsTotal.WithLabelValues("lock", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RepoCallDuration))
}

func TestCloseIsIdempotent(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.Close()
	m.Close()
}
