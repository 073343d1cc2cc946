// Package bus carries creation notifications between the GraphQL mutations
// that produce them and the subscriptions that consume them.
//
// Three topics exist: userCreated, eventCreated and participantAdded. Each is
// published as JSON on the broker subject "<prefix>.<topic>". The broker is
// pluggable:
//
//   - nats: a NATS core connection (natsclient)
//   - redis: Redis pub/sub via go-redis
//   - memory: in-process delivery for tests and single-node setups
//
// A Bus keeps one broker subscription per topic and copies every message to
// each local subscriber's bounded queue. Slow subscribers lose messages rather
// than stall the publisher.
//
// Run drives the connection. When the broker is unreachable, or its host or
// port is not configured, Run keeps retrying with a capped linear backoff
// (attempt × 50ms, at most 2s) until the context ends. Publishing while
// disconnected fails fast; mutations treat that as a logged, non-fatal error.
//
// Basic usage:
//
//	b, err := bus.Open(cfg, bus.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	go b.Run(ctx)
//
//	users, err := bus.Listen[store.User](ctx, b, bus.TopicUserCreated)
package bus
