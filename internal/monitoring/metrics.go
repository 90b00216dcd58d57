// Package monitoring collects Prometheus metrics for the HTTP surface and
// the IPC object layer.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// IPC object metrics, labeled by object class (fifo, pipe, shm,
	// eventpair) and operation.
	IPCOps          *prometheus.CounterVec
	IPCWouldBlock   *prometheus.CounterVec
	IPCRecordsMoved *prometheus.CounterVec
	HandlesActive   prometheus.Gauge

	// Clipboard metrics
	ClipboardOps     *prometheus.CounterVec
	ClipboardEntries prometheus.Gauge

	// Service metrics
	ServiceCalls    *prometheus.CounterVec
	ServiceDuration *prometheus.HistogramVec
	ServiceErrors   *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a new metrics collector
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),

		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipcd_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ipcd_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		IPCOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipcd_ipc_operations_total",
				Help: "Total IPC object operations",
			},
			[]string{"class", "op"},
		),
		IPCWouldBlock: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipcd_ipc_would_block_total",
				Help: "IPC operations that returned the would-block signal",
			},
			[]string{"class", "op"},
		),
		IPCRecordsMoved: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipcd_ipc_records_moved_total",
				Help: "Records enqueued and dequeued through fifos",
			},
			[]string{"class", "op"},
		),
		HandlesActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ipcd_handles_active",
				Help: "Currently live IPC handles",
			},
		),

		ClipboardOps: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipcd_clipboard_operations_total",
				Help: "Clipboard operations by type",
			},
			[]string{"op"},
		),
		ClipboardEntries: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ipcd_clipboard_entries",
				Help: "Entries currently held in clipboard history",
			},
		),

		ServiceCalls: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipcd_service_calls_total",
				Help: "Total service tool calls",
			},
			[]string{"service", "tool", "status"},
		),
		ServiceDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ipcd_service_call_duration_seconds",
				Help:    "Service tool call duration in seconds",
				Buckets: []float64{.0001, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"service", "tool"},
		),
		ServiceErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ipcd_service_errors_total",
				Help: "Service tool calls that returned an error",
			},
			[]string{"service", "tool"},
		),

		Uptime: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "ipcd_uptime_seconds",
				Help: "Process uptime in seconds",
			},
		),
	}

	go m.trackUptime()
	return m
}

// RecordHTTPRequest records metrics for one handled request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordServiceCall records a completed service tool call.
func (m *Metrics) RecordServiceCall(service, tool, status string, duration time.Duration) {
	m.ServiceCalls.WithLabelValues(service, tool, status).Inc()
	m.ServiceDuration.WithLabelValues(service, tool).Observe(duration.Seconds())
	if status != "success" {
		m.ServiceErrors.WithLabelValues(service, tool).Inc()
	}
}

func (m *Metrics) trackUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}
