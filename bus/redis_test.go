package bus

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/eventgraph/errors"
)

// redisConfig points a bus at mr and makes mr require the configured password.
func redisConfig(t *testing.T, mr *miniredis.Miniredis) Config {
	t.Helper()
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	mr.RequireAuth("s3cret")
	return Config{
		Backend:          BackendRedis,
		Host:             mr.Host(),
		Port:             port,
		Password:         "s3cret",
		ReconnectStepStr: "5ms",
		ReconnectMaxStr:  "50ms",
	}
}

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)
	broker := NewRedisBroker(mr.Addr())
	ctx := context.Background()
	require.NoError(t, broker.Connect(ctx))
	defer broker.Close(ctx)

	got := make(chan []byte, 1)
	require.NoError(t, broker.Subscribe(ctx, "eventgraph.userCreated", func(_ context.Context, data []byte) {
		got <- data
	}))

	require.NoError(t, broker.Publish(ctx, "eventgraph.userCreated", []byte(`{"id":"u-1"}`)))

	select {
	case data := <-got:
		assert.Equal(t, `{"id":"u-1"}`, string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestRedisBroker_Auth(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireUserAuth("bus", "secret")
	ctx := context.Background()

	denied := NewRedisBroker(mr.Addr(), WithRedisCredentials("bus", "wrong"))
	defer denied.Close(ctx)
	require.Error(t, denied.Connect(ctx))

	allowed := NewRedisBroker(mr.Addr(), WithRedisCredentials("bus", "secret"))
	defer allowed.Close(ctx)
	require.NoError(t, allowed.Connect(ctx))
}

func TestRedisBroker_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	broker := NewRedisBroker(addr, WithRedisTimeout(200*time.Millisecond))
	defer broker.Close(context.Background())

	err := broker.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestRedisBroker_CloseIsFinal(t *testing.T) {
	mr := miniredis.RunT(t)
	broker := NewRedisBroker(mr.Addr())
	ctx := context.Background()

	require.NoError(t, broker.Connect(ctx))
	require.NoError(t, broker.Subscribe(ctx, "eventgraph.eventCreated", func(context.Context, []byte) {}))
	require.NoError(t, broker.Close(ctx))
	require.NoError(t, broker.Close(ctx))

	assert.Error(t, broker.Connect(ctx))
	assert.Error(t, broker.Subscribe(ctx, "eventgraph.eventCreated", func(context.Context, []byte) {}))
}

func TestBus_RedisFanOut(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := Open(redisConfig(t, mr))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	require.Eventually(t, b.Connected, 2*time.Second, 10*time.Millisecond)

	first, err := Listen[note](ctx, b, TopicEventCreated)
	require.NoError(t, err)
	second, err := Listen[note](ctx, b, TopicEventCreated)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, TopicEventCreated, note{ID: "e-1", Name: "Launch"}))

	want := note{ID: "e-1", Name: "Launch"}
	assert.Equal(t, want, receive(t, first))
	assert.Equal(t, want, receive(t, second))

	cancel()
	require.NoError(t, <-done)
}

func TestBus_RedisLateServer(t *testing.T) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.StartAddr("127.0.0.1:0"))
	addr, host := mr.Addr(), mr.Host()
	portNum, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	mr.Close()

	b, err := Open(Config{
		Backend:           BackendRedis,
		Host:              host,
		Port:              portNum,
		Password:          "s3cret",
		ReconnectStepStr:  "5ms",
		ReconnectMaxStr:   "20ms",
		ConnectTimeoutStr: "100ms",
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, b.Connected())

	late := miniredis.NewMiniRedis()
	late.RequireAuth("s3cret")
	require.NoError(t, late.StartAddr(addr))
	defer late.Close()

	require.Eventually(t, b.Connected, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
