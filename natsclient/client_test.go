package natsclient

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/eventgraph/errors"
)

func TestNewClient(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Equal(t, "nats://localhost:4222", client.URL())
	assert.Equal(t, StatusDisconnected, client.Status())
	assert.False(t, client.IsHealthy())
}

func TestNewClient_InvalidOption(t *testing.T) {
	_, err := NewClient("nats://localhost:4222", WithTimeout(0))
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = NewClient("nats://localhost:4222", WithReconnectDelay(nil))
	assert.Error(t, err)
}

func TestConnectionStatus_String(t *testing.T) {
	tests := []struct {
		status   ConnectionStatus
		expected string
	}{
		{StatusDisconnected, "disconnected"},
		{StatusConnecting, "connecting"},
		{StatusConnected, "connected"},
		{StatusReconnecting, "reconnecting"},
		{StatusClosed, "closed"},
		{ConnectionStatus(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.status.String())
		})
	}
}

func TestStatus_Transitions(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	client.setStatus(StatusConnected)
	assert.True(t, client.IsHealthy())

	client.handleDisconnect(nil, nil)
	assert.Equal(t, StatusReconnecting, client.Status())
	assert.False(t, client.IsHealthy())

	client.handleClosed(nil)
	assert.Equal(t, StatusDisconnected, client.Status())
}

func TestCallbacks(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(1)

	client, err := NewClient("nats://localhost:4222",
		WithDisconnectCallback(func(error) { wg.Done() }),
	)
	require.NoError(t, err)

	client.handleDisconnect(nil, assert.AnError)
	wg.Wait()
}

func TestConnectionOptions(t *testing.T) {
	client, err := NewClient("nats://localhost:4222",
		WithName("eventgraph-test"),
		WithCredentials("user", "pass"),
		WithReconnectDelay(func(int) time.Duration { return time.Millisecond }),
	)
	require.NoError(t, err)

	base, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	assert.Greater(t, len(client.ConnectionOptions()), len(base.ConnectionOptions()))
}

func TestTimerOptions(t *testing.T) {
	base, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, base.pingInterval)
	assert.Equal(t, 30*time.Second, base.drainTimeout)

	client, err := NewClient("nats://localhost:4222",
		WithPingInterval(2*time.Second),
		WithDrainTimeout(500*time.Millisecond),
	)
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, client.pingInterval)
	assert.Equal(t, 500*time.Millisecond, client.drainTimeout)
}

func TestPublishSubscribe_NotConnected(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx := context.Background()
	assert.ErrorIs(t, client.Publish(ctx, "eventgraph.userCreated", []byte("{}")), ErrNotConnected)
	assert.ErrorIs(t, client.Subscribe(ctx, "eventgraph.userCreated", func(context.Context, []byte) {}), ErrNotConnected)

	_, err = client.RTT()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConnect_Unreachable(t *testing.T) {
	client, err := NewClient("nats://127.0.0.1:1", WithTimeout(200*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err = client.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, StatusDisconnected, client.Status())
}

func TestClose_Idempotent(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.Close(ctx))
	require.NoError(t, client.Close(ctx))
	assert.Equal(t, StatusClosed, client.Status())

	assert.ErrorIs(t, client.Connect(ctx), ErrClientClosed)
	assert.ErrorIs(t, client.Subscribe(ctx, "x", func(context.Context, []byte) {}), ErrClientClosed)
}

func TestWaitForConnection(t *testing.T) {
	client, err := NewClient("nats://localhost:4222")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.Error(t, client.WaitForConnection(ctx))

	client.setStatus(StatusConnected)
	require.NoError(t, client.WaitForConnection(context.Background()))
}
