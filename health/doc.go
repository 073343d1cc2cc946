// Package health models the health of eventgraph's running parts.
//
// A Status is one of three states:
//   - healthy: working normally
//   - degraded: serving, but with reduced functionality (for example the
//     notification bus is disconnected, so subscriptions receive nothing)
//   - unhealthy: unable to serve requests
//
// Aggregate folds the statuses of the HTTP server, the bus and the store
// into the report served at /health:
//
//	status := health.Aggregate("eventgraph",
//		health.Healthy("server", "listening"),
//		health.FromError("bus", b.LastError(), "connected"),
//		health.Healthy("store", "in memory"),
//	)
//
// Error messages placed in a status pass through Sanitize, which removes
// URLs, paths, IP addresses, ports and credentials.
package health
