// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Prometheus collectors for connection, byte and error accounting.

package control

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "hioload_tcp").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for poll wait duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures MetricsConfig.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) { c.Namespace = namespace }
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) { c.Subsystem = subsystem }
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) { c.ConstLabels = labels }
}

// WithBuckets sets the poll wait histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) { c.Buckets = buckets }
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) { c.Registry = registry }
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "hioload_tcp",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .25, .5, 1},
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors of one server instance.
type Metrics struct {
	connsActive   prometheus.Gauge
	connsAccepted prometheus.Counter
	connsRejected *prometheus.CounterVec
	connsClosed   prometheus.Counter
	bytesIn       prometheus.Counter
	bytesOut      prometheus.Counter
	ioErrors      *prometheus.CounterVec
	pollWait      prometheus.Histogram
	notifications *prometheus.CounterVec
}

// NewMetrics registers the collectors on the configured registry. It panics
// on duplicate registration like promauto does.
func NewMetrics(opts ...MetricsOption) *Metrics {
	cfg := defaultMetricsConfig()
	for _, o := range opts {
		o(&cfg)
	}
	factory := promauto.With(cfg.Registry)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: cfg.ConstLabels,
		}, labels)
	}

	return &Metrics{
		connsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "connections_active",
			Help:        "Number of open connections in the connection table",
			ConstLabels: cfg.ConstLabels,
		}),
		connsAccepted: counter("connections_accepted_total", "Total connections admitted"),
		connsRejected: counterVec("connections_rejected_total", "Total accepted sockets rejected before admission", "reason"),
		connsClosed:   counter("connections_closed_total", "Total connections closed by the peer"),
		bytesIn:       counter("bytes_received_total", "Total bytes received into inbound FIFOs"),
		bytesOut:      counter("bytes_sent_total", "Total bytes flushed from outbound FIFOs"),
		ioErrors:      counterVec("io_errors_total", "Total non-fatal I/O errors by operation", "op"),
		pollWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "poll_wait_seconds",
			Help:        "Time spent blocked in readiness polling",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}),
		notifications: counterVec("notifications_total", "Total notifications delivered to the host", "kind"),
	}
}

// ConnOpened records an admitted connection.
func (m *Metrics) ConnOpened() {
	if m == nil {
		return
	}
	m.connsAccepted.Inc()
	m.connsActive.Inc()
}

// ConnRejected records a socket refused before admission.
func (m *Metrics) ConnRejected(reason string) {
	if m == nil {
		return
	}
	m.connsRejected.WithLabelValues(reason).Inc()
}

// ConnClosed records a peer-initiated close.
func (m *Metrics) ConnClosed() {
	if m == nil {
		return
	}
	m.connsClosed.Inc()
	m.connsActive.Dec()
}

// ConnsReset zeroes the live connection gauge at shutdown.
func (m *Metrics) ConnsReset() {
	if m == nil {
		return
	}
	m.connsActive.Set(0)
}

// BytesReceived adds n inbound bytes.
func (m *Metrics) BytesReceived(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesIn.Add(float64(n))
}

// BytesSent adds n outbound bytes.
func (m *Metrics) BytesSent(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesOut.Add(float64(n))
}

// IOError records a non-fatal failure of op ("accept", "recv", "send", ...).
func (m *Metrics) IOError(op string) {
	if m == nil {
		return
	}
	m.ioErrors.WithLabelValues(op).Inc()
}

// PollWait observes one readiness wait.
func (m *Metrics) PollWait(d time.Duration) {
	if m == nil {
		return
	}
	m.pollWait.Observe(d.Seconds())
}

// Notified counts one delivered notification of the given kind.
func (m *Metrics) Notified(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}
