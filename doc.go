// Package eventgraph is a GraphQL API over a small relational dataset of
// users, events, locations and participants, with real-time notifications
// when records are created.
//
// # Architecture
//
//	                     +-------------------+
//	 HTTP / websocket -->|  gateway/graphql  |--> metric (Prometheus)
//	                     +-------------------+
//	                        |             |
//	                        v             v
//	                  +---------+    +---------+     +-----------------+
//	                  |  store  |    |   bus   |<--->| NATS/Redis/mem  |
//	                  +---------+    +---------+     +-----------------+
//
// store holds the four collections in memory, seeded from a fixture. Reads
// return copies and lookups by id fail with errors.NotFoundError.
//
// bus publishes userCreated, eventCreated and participantAdded notifications
// through a broker and fans each one out to every local subscriber. The broker
// connection is retried forever with a linear backoff (pkg/retry), so the API
// keeps serving queries while the broker is unreachable.
//
// gateway/graphql serves queries, mutations and subscriptions through gqlgen's
// handler over a hand-bound executable schema, with depth, complexity and rate
// limits, a health endpoint and a playground.
//
// # Packages
//
//   - store: in-memory Record Store and fixtures
//   - bus: Notification Bus, Broker backends and typed Listen
//   - gateway/graphql: schema, resolvers, executor, HTTP server
//   - natsclient: NATS connection management with reconnect callbacks
//   - health: aggregated health status served at /health
//   - metric: Prometheus registry and core metrics
//   - config: layered configuration (defaults, files, .env, environment)
//   - errors: classified errors and NotFound
//   - pkg/retry: backoff policies
//   - cmd/eventgraph: the server binary
//
// # Running
//
//	EVENTGRAPH_BUS_HOST=localhost EVENTGRAPH_BUS_PORT=4222 eventgraph
//	EVENTGRAPH_BUS_BACKEND=memory eventgraph --log-format=text
package eventgraph
