package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "billing"

type ServerMetrics struct {
	Requests     *prometheus.CounterVec
	LatencyMS    *prometheus.HistogramVec
	Sales        *prometheus.CounterVec
	SalesRevenue *prometheus.CounterVec
	Rejections   *prometheus.CounterVec
	OutboxEvents *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewServerMetrics registers the shop server's collectors on reg. A nil reg
// uses a fresh registry.
func NewServerMetrics(service string, reg *prometheus.Registry) *ServerMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
	sales := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "sales_total",
		Help:      "Recorded sales by payment mode.",
	}, []string{"payment_mode"})
	revenue := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "sales_revenue_total",
		Help:      "Sum of recorded bill totals by payment mode.",
	}, []string{"payment_mode"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "sales_rejected_total",
		Help:      "Checkouts refused by the server.",
	}, []string{"reason"})
	outbox := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "outbox_events_total",
		Help:      "Outbox events handled by the publisher.",
	}, []string{"result"})

	reg.MustRegister(requests, latency, sales, revenue, rejections, outbox)
	return &ServerMetrics{
		Requests:     requests,
		LatencyMS:    latency,
		Sales:        sales,
		SalesRevenue: revenue,
		Rejections:   rejections,
		OutboxEvents: outbox,
		gatherer:     reg,
	}
}

// Handler serves the registry these metrics were registered on.
func (m *ServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
