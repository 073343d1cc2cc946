package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "eventgraph"

// Metrics contains the metrics every eventgraph process exports.
// The Record methods are no-ops on a nil *Metrics.
type Metrics struct {
	// GraphQL metrics
	OperationsTotal   *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	ResolverErrors    *prometheus.CounterVec
	RequestsRejected  prometheus.Counter

	// Notification bus metrics
	BusPublished     *prometheus.CounterVec
	BusPublishErrors *prometheus.CounterVec
	BusDelivered     *prometheus.CounterVec
	BusDropped       *prometheus.CounterVec
	BusSubscribers   *prometheus.GaugeVec
	BusConnected     prometheus.Gauge
	BusReconnects    prometheus.Counter
}

// NewMetrics creates a new Metrics instance
func NewMetrics() *Metrics {
	return &Metrics{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "operations_total",
				Help:      "Total number of GraphQL operations handled",
			},
			[]string{"operation", "type", "status"},
		),

		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "operation_duration_seconds",
				Help:      "GraphQL operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation", "type"},
		),

		ResolverErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "graphql",
				Name:      "resolver_errors_total",
				Help:      "Total number of resolver errors by error code",
			},
			[]string{"resolver", "code"},
		),

		RequestsRejected: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_rejected_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
		),

		BusPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "published_total",
				Help:      "Total number of notifications published",
			},
			[]string{"topic"},
		),

		BusPublishErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "publish_errors_total",
				Help:      "Total number of notifications that failed to publish",
			},
			[]string{"topic"},
		),

		BusDelivered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "delivered_total",
				Help:      "Total number of notifications handed to local subscribers",
			},
			[]string{"topic"},
		),

		BusDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "dropped_total",
				Help:      "Total number of notifications dropped because a subscriber buffer was full",
			},
			[]string{"topic"},
		),

		BusSubscribers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "subscribers",
				Help:      "Number of live local subscribers per topic",
			},
			[]string{"topic"},
		),

		BusConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "connected",
				Help:      "Bus transport connection status (0=disconnected, 1=connected)",
			},
		),

		BusReconnects: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "bus",
				Name:      "reconnects_total",
				Help:      "Total number of bus transport reconnections",
			},
		),
	}
}

// RecordOperation counts a finished GraphQL operation and observes its duration
func (c *Metrics) RecordOperation(operation, opType string, failed bool, duration time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if failed {
		status = "error"
	}
	c.OperationsTotal.WithLabelValues(operation, opType, status).Inc()
	c.OperationDuration.WithLabelValues(operation, opType).Observe(duration.Seconds())
}

// RecordResolverError increments the resolver error counter
func (c *Metrics) RecordResolverError(resolver, code string) {
	if c == nil {
		return
	}
	c.ResolverErrors.WithLabelValues(resolver, code).Inc()
}

// RecordRequestRejected increments the rate limiter rejection counter
func (c *Metrics) RecordRequestRejected() {
	if c == nil {
		return
	}
	c.RequestsRejected.Inc()
}

// RecordPublished increments the published counter for a topic
func (c *Metrics) RecordPublished(topic string) {
	if c == nil {
		return
	}
	c.BusPublished.WithLabelValues(topic).Inc()
}

// RecordPublishError increments the publish error counter for a topic
func (c *Metrics) RecordPublishError(topic string) {
	if c == nil {
		return
	}
	c.BusPublishErrors.WithLabelValues(topic).Inc()
}

// RecordDelivered increments the delivered counter for a topic
func (c *Metrics) RecordDelivered(topic string) {
	if c == nil {
		return
	}
	c.BusDelivered.WithLabelValues(topic).Inc()
}

// RecordDropped increments the dropped counter for a topic
func (c *Metrics) RecordDropped(topic string) {
	if c == nil {
		return
	}
	c.BusDropped.WithLabelValues(topic).Inc()
}

// RecordSubscribers sets the live subscriber gauge for a topic
func (c *Metrics) RecordSubscribers(topic string, n int) {
	if c == nil {
		return
	}
	c.BusSubscribers.WithLabelValues(topic).Set(float64(n))
}

// RecordBusStatus updates the bus connection status
func (c *Metrics) RecordBusStatus(connected bool) {
	if c == nil {
		return
	}
	value := 0.0
	if connected {
		value = 1.0
	}
	c.BusConnected.Set(value)
}

// RecordBusReconnect increments the reconnection counter
func (c *Metrics) RecordBusReconnect() {
	if c == nil {
		return
	}
	c.BusReconnects.Inc()
}
