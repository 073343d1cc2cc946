//go:build integration

package natsclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_ConnectToRealNATS(t *testing.T) {
	tc := NewTestClient(t)

	assert.True(t, tc.Client.IsHealthy())
	rtt, err := tc.Client.RTT()
	require.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))
	assert.Equal(t, StatusConnected, tc.Client.GetStatus().Status)
}

func TestIntegration_PublishSubscribe(t *testing.T) {
	tc := NewTestClient(t)
	ctx := context.Background()

	received := make(chan []byte, 1)
	require.NoError(t, tc.Client.Subscribe(ctx, "eventgraph.userCreated", func(_ context.Context, data []byte) {
		received <- data
	}))

	require.NoError(t, tc.Client.Publish(ctx, "eventgraph.userCreated", []byte(`{"id":"u1"}`)))

	select {
	case data := <-received:
		assert.JSONEq(t, `{"id":"u1"}`, string(data))
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}

func TestIntegration_CloseDrains(t *testing.T) {
	tc := NewTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, tc.Client.Subscribe(ctx, "eventgraph.eventCreated", func(context.Context, []byte) {}))
	require.NoError(t, tc.Client.Close(ctx))
	assert.Equal(t, StatusClosed, tc.Client.Status())
	assert.ErrorIs(t, tc.Client.Publish(ctx, "eventgraph.eventCreated", nil), ErrNotConnected)
}

func TestIntegration_TokenAuth(t *testing.T) {
	tc := NewTestClient(t, WithServerToken("s3cret"))
	assert.True(t, tc.Client.IsHealthy())
	assert.Equal(t, "s3cret", tc.Token)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	anonymous, err := NewClient(tc.URL, WithMaxReconnects(0), WithTimeout(2*time.Second))
	require.NoError(t, err)
	defer anonymous.Close(ctx)
	assert.Error(t, anonymous.Connect(ctx))

	wrong, err := NewClient(tc.URL, WithToken("nope"), WithMaxReconnects(0), WithTimeout(2*time.Second))
	require.NoError(t, err)
	defer wrong.Close(ctx)
	assert.Error(t, wrong.Connect(ctx))
}
