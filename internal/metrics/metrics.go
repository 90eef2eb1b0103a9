// Package metrics exposes Prometheus collectors for the HTTP surface and the order core.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registered collectors.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
	orders       *prometheus.CounterVec
	stockFails   *prometheus.CounterVec
	webhooks     *prometheus.CounterVec
	sweeps       *prometheus.CounterVec
}

// New registers every collector on a fresh registry together with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "orders_transitions_total",
			Help: "Order lifecycle transitions by resulting status and source.",
		}, []string{"status", "source"}),
		stockFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_reservation_failures_total",
			Help: "Order placements refused for stock reasons.",
		}, []string{"reason"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Webhook deliveries by provider, event and outcome.",
		}, []string{"provider", "event", "outcome"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "completion_sweep_orders_total",
			Help: "Orders handled by the completion sweep by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.httpRequests, m.httpDuration, m.orders, m.stockFails, m.webhooks, m.sweeps)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTP records one completed request. route is the matched pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	route = normalizeLabel(route)
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// OrderTransition counts an order entering status.
func (m *Metrics) OrderTransition(status, source string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(normalizeLabel(status), normalizeLabel(source)).Inc()
}

// StockFailure counts a refused placement.
func (m *Metrics) StockFailure(reason string) {
	if m == nil {
		return
	}
	m.stockFails.WithLabelValues(normalizeLabel(reason)).Inc()
}

// Webhook counts a webhook delivery outcome.
func (m *Metrics) Webhook(provider, event, outcome string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(provider), normalizeLabel(event), normalizeLabel(outcome)).Inc()
}

// Sweep counts orders processed by the completion sweep.
func (m *Metrics) Sweep(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweeps.WithLabelValues(normalizeLabel(result)).Add(float64(n))
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
