// Package natsclient wraps the NATS Go client for core publish/subscribe with
// connection state tracking, pluggable reconnect delay and context propagation.
//
// # Connection Lifecycle
//
// Connect makes a single attempt. Callers that must keep trying (the notification
// bus does) wrap it in their own retry loop. Once a connection exists, the NATS
// library reconnects by itself, waiting WithReconnectDelay(fn) between attempts.
// States move through Disconnected → Connecting → Connected → Reconnecting → Connected,
// and end in Closed after Close.
//
// # Basic Usage
//
//	client, err := natsclient.NewClient("nats://localhost:4222",
//	    natsclient.WithName("eventgraph"),
//	    natsclient.WithReconnectDelay(retry.Reconnect().Delay),
//	)
//	if err != nil {
//	    return err
//	}
//	if err := client.Connect(ctx); err != nil {
//	    return err
//	}
//	defer client.Close(ctx)
//
//	err = client.Subscribe(ctx, "eventgraph.userCreated", func(msgCtx context.Context, data []byte) {
//	    // msgCtx carries a 30s timeout
//	})
//	err = client.Publish(ctx, "eventgraph.userCreated", payload)
//
// Subscriptions live until Close, which unsubscribes them and drains the connection
// within the drain timeout or the context deadline, whichever is sooner.
//
// # Testing
//
// NewTestClient starts a NATS container with testcontainers-go and returns a connected
// client that is torn down by t.Cleanup. WithServerToken starts the server with token
// auth. Tests that use it carry the integration build tag.
package natsclient
