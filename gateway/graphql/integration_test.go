//go:build integration

package graphql

import (
	"context"
	"testing"
	"time"

	"github.com/99designs/gqlgen/client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/eventgraph/bus"
	"github.com/c360/eventgraph/natsclient"
	"github.com/c360/eventgraph/store"
)

// newNATSGateway starts a gateway instance with its own store on the shared NATS server.
func newNATSGateway(t *testing.T, tc *natsclient.TestClient) (*Gateway, *bus.Bus) {
	t.Helper()

	b, err := bus.Open(bus.Config{Backend: bus.BackendNATS, Host: tc.Host, Port: tc.Port, Password: tc.Token},
		bus.WithLogger(discardLogger()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	require.Eventually(t, b.Connected, 10*time.Second, 20*time.Millisecond)

	st, err := store.Open(store.Config{})
	require.NoError(t, err)

	g, err := New(DefaultConfig(), st, b, WithLogger(discardLogger()))
	require.NoError(t, err)
	return g, b
}

// TestIntegration_CrossInstanceSubscription checks a creation on one instance
// reaches subscribers of another through the shared broker.
func TestIntegration_CrossInstanceSubscription(t *testing.T) {
	tc := natsclient.NewTestClient(t, natsclient.WithServerToken("s3cret"))

	writer, _ := newNATSGateway(t, tc)
	reader, readerBus := newNATSGateway(t, tc)

	sub := client.New(reader.handler).Websocket(`subscription { eventCreated { id title } }`)
	defer sub.Close()
	require.Eventually(t, func() bool {
		return readerBus.SubscriberCount(bus.TopicEventCreated) == 1
	}, 5*time.Second, 10*time.Millisecond)

	var added struct {
		AddEvent struct {
			ID string `json:"id"`
		} `json:"addEvent"`
	}
	require.NoError(t, client.New(writer.handler).Post(`mutation {
		addEvent(data: { title: "Launch", desc: "d", date: "2024-05-01", from: "9", to: "10",
			location_id: "l-hall", user_id: "u-ada" }) { id }
	}`, &added))

	var msg struct {
		EventCreated struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"eventCreated"`
	}
	require.NoError(t, sub.Next(&msg))
	assert.Equal(t, added.AddEvent.ID, msg.EventCreated.ID)
	assert.Equal(t, "Launch", msg.EventCreated.Title)

	// The reader's own store never saw the write.
	_, err := reader.store.Event(added.AddEvent.ID)
	assert.Error(t, err)
}
