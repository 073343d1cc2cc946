// Package metric provides Prometheus-based metrics for eventgraph.
//
// MetricsRegistry owns a private prometheus.Registry with the core metrics
// (GraphQL operations, resolver errors, bus traffic and connection state) plus the
// Go and process collectors. Components add their own collectors through the
// MetricsRegistrar interface; registering the same service/metric pair twice is an
// invalid-class error.
//
//	registry := metric.NewMetricsRegistry()
//	registry.CoreMetrics().RecordPublished("userCreated")
//	mux.Handle("/metrics", registry.Handler())
//
// Server serves the same registry on a dedicated port when the metrics endpoint
// should not share the GraphQL listener.
package metric
