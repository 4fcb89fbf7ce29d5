package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestObservers(t *testing.T) {
	m := New(false)

	m.ObserveScore("BULLISH")
	m.ObserveScore("BULLISH")
	m.ObserveScore("VERY BEARISH")
	m.ObserveInvoice(3, 1)
	m.ObserveInvoice(2, 0)
	m.ObserveUpstream("list_gems", 200)
	m.ObserveUpstream("list_gems", 0)
	m.ObserveRequest(http.MethodGet, "/api/v1/gems", 200, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.GemsScored.WithLabelValues("BULLISH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GemsScored.WithLabelValues("VERY BEARISH")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.ItemsExtracted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BlocksSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("list_gems", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.UpstreamCalls.WithLabelValues("list_gems", "error")))

	out := scrape(t, m)
	assert.Contains(t, out, "gemshub_gems_scored_total")
	assert.Contains(t, out, "gemshub_http_request_duration_seconds")
	assert.Contains(t, out, `route="/api/v1/gems"`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveScore("BULLISH")
		m.ObserveInvoice(1, 1)
		m.ObserveUpstream("health", 500)
		m.ObserveRequest(http.MethodGet, "", 404, time.Millisecond)
	})
}

func TestRuntimeCollectors(t *testing.T) {
	out := scrape(t, New(true))
	assert.Contains(t, out, "go_goroutines")
}
