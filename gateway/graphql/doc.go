// Package graphql serves the eventgraph API: queries, mutations and
// subscriptions over Users, Events, Locations and Participants.
//
// # Architecture
//
// The executable schema in package generated is produced by gqlgen from
// schema.graphql (see gqlgen.yml; run go generate after editing the schema).
// Schema objects are bound straight to the store types, and fields that
// follow a reference go through the resolvers in schema.resolvers.go:
//
//	HTTP/WS -> rate limit -> CORS -> handler.Server -> generated -> Resolver
//	                                                             |-> store.Store
//	                                                             `-> bus.Bus
//
// Mutations write to the store and, for creations, publish the new record on
// the bus. Subscriptions read from the bus, so a creation on one instance
// reaches subscribers of every instance that shares the broker.
//
// # Errors
//
// Every resolver error carries a "code" extension (NOT_FOUND, INVALID_INPUT,
// DEADLINE_EXCEEDED, CANCELLED, TRANSIENT_ERROR, INTERNAL_ERROR). NOT_FOUND
// errors also carry the "kind" and "id" that missed. Panics are recovered,
// logged with their stack and reported as INTERNAL_ERROR.
//
// # Usage
//
//	cfg := graphql.DefaultConfig()
//	gw, err := graphql.New(cfg, st, b,
//		graphql.WithLogger(logger),
//		graphql.WithMetricsRegistry(registry))
//	if err != nil {
//		return err
//	}
//	return gw.Start(ctx) // blocks until ctx is cancelled
//
// Routes: the GraphQL endpoint at Config.Path (HTTP and graphql-ws), /health,
// /metrics when a registry is set, and the playground at / when enabled.
package graphql
