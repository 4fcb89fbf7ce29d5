// Package metrics exposes the hub's prometheus instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gemshub"

// Metrics holds the hub's collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	GemsScored      *prometheus.CounterVec
	ItemsExtracted  prometheus.Counter
	BlocksSkipped   prometheus.Counter
	UpstreamCalls   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers every collector. Go runtime and process
// collectors are added when withRuntime is set.
func New(withRuntime bool) *Metrics {
	reg := prometheus.NewRegistry()
	if withRuntime {
		reg.MustRegister(
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: namespace}),
			prometheus.NewGoCollector(),
		)
	}

	m := &Metrics{
		registry: reg,
		GemsScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gems_scored_total",
			Help:      "Gem types scored, by tier.",
		}, []string{"tier"}),
		ItemsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_items_extracted_total",
			Help:      "Invoice line items extracted from uploaded PDFs.",
		}),
		BlocksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invoice_blocks_skipped_total",
			Help:      "Product blocks dropped because the product id or price was missing.",
		}),
		UpstreamCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Requests made to the gem database API.",
		}, []string{"endpoint", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.GemsScored, m.ItemsExtracted, m.BlocksSkipped, m.UpstreamCalls, m.RequestDuration)
	return m
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveScore counts one scored gem. Safe on a nil receiver.
func (m *Metrics) ObserveScore(tier string) {
	if m == nil {
		return
	}
	m.GemsScored.WithLabelValues(tier).Inc()
}

// ObserveInvoice records the outcome of one invoice parse
func (m *Metrics) ObserveInvoice(extracted, skipped int) {
	if m == nil {
		return
	}
	m.ItemsExtracted.Add(float64(extracted))
	if skipped > 0 {
		m.BlocksSkipped.Add(float64(skipped))
	}
}

// ObserveUpstream matches gemdb.ObserveFunc. Status 0 means a transport error.
func (m *Metrics) ObserveUpstream(endpoint string, status int) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.UpstreamCalls.WithLabelValues(endpoint, label).Inc()
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}
