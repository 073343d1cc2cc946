// Package retry provides the reconnect backoff shared by every bus transport link.
//
// # Policy
//
// Linear grows the delay by a fixed step per attempt and caps it:
//
//	delay(n) = min(n × Step, Max)
//
// Reconnect() returns the policy used throughout eventgraph: 50ms steps capped at 2s.
// The same policy is handed to the NATS client as its reconnect delay, bounds go-redis
// command retries, and paces the bus connect loop.
//
// # Usage
//
// Retry until connected or shut down:
//
//	err := retry.Forever(ctx, retry.Reconnect(), func(attempt int) error {
//	    return broker.Connect(ctx)
//	})
//
// Return retry.NonRetryable(err) from fn to stop early, e.g. after the broker was closed.
//
// # Context Cancellation
//
// Forever and Sleep return as soon as ctx is done, both while fn runs and during backoff.
package retry
