package bus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/eventgraph/errors"
	"github.com/c360/eventgraph/metric"
)

type note struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newMemoryBus(t *testing.T, cfg Config) (*Bus, *MemoryBroker) {
	t.Helper()
	broker := NewMemoryBroker()
	cfg.Backend = BackendMemory
	b, err := New(broker, cfg)
	require.NoError(t, err)
	require.NoError(t, b.Connect(context.Background()))
	t.Cleanup(func() { _ = b.Close(context.Background()) })
	return b, broker
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	var zero T
	return zero
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{
			name: "defaults",
			cfg:  Config{},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, BackendNATS, cfg.Backend)
				assert.Equal(t, "eventgraph", cfg.SubjectPrefix)
				assert.Equal(t, 64, cfg.BufferSize)
				assert.Equal(t, 50*time.Millisecond, cfg.Policy().Step)
				assert.Equal(t, 2*time.Second, cfg.Policy().Max)
				assert.Equal(t, 5*time.Second, cfg.ConnectTimeout())
				assert.Equal(t, 10*time.Second, cfg.PingInterval())
			},
		},
		{
			name: "custom ping interval",
			cfg:  Config{PingIntervalStr: "250ms"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 250*time.Millisecond, cfg.PingInterval())
			},
		},
		{name: "zero ping interval", cfg: Config{PingIntervalStr: "0s"}, wantErr: true},
		{
			name: "custom backoff",
			cfg:  Config{Backend: BackendRedis, ReconnectStepStr: "10ms", ReconnectMaxStr: "100ms"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 10*time.Millisecond, cfg.Policy().Step)
				assert.Equal(t, 100*time.Millisecond, cfg.Policy().Max)
			},
		},
		{name: "unknown backend", cfg: Config{Backend: "kafka"}, wantErr: true},
		{name: "port out of range", cfg: Config{Port: 70000}, wantErr: true},
		{name: "negative buffer", cfg: Config{BufferSize: -1}, wantErr: true},
		{name: "bad duration", cfg: Config{ReconnectStepStr: "soon"}, wantErr: true},
		{name: "max below step", cfg: Config{ReconnectStepStr: "1s", ReconnectMaxStr: "10ms"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, tt.cfg)
			}
		})
	}
}

func TestConfig_Address(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		addr    string
		missing []string
	}{
		{name: "complete", cfg: Config{Host: "broker", Port: 4222, Password: "s3cret"}, addr: "broker:4222"},
		{name: "token with username", cfg: Config{Host: "broker", Port: 4222, Username: "bus", Password: "s3cret"}, addr: "broker:4222"},
		{name: "no host", cfg: Config{Port: 4222, Password: "s3cret"}, missing: []string{"host"}},
		{name: "no port", cfg: Config{Host: "broker", Password: "s3cret"}, missing: []string{"port"}},
		{name: "no credential", cfg: Config{Host: "broker", Port: 4222}, missing: []string{"credential"}},
		{name: "username is not a credential", cfg: Config{Host: "broker", Port: 4222, Username: "bus"}, missing: []string{"credential"}},
		{name: "nothing", cfg: Config{}, missing: []string{"host", "port", "credential"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, missing := tt.cfg.Address()
			assert.Equal(t, tt.addr, addr)
			assert.Equal(t, tt.missing, missing)
		})
	}
}

func TestConfig_Subject(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "eventgraph.userCreated", cfg.Subject(TopicUserCreated))

	cfg.SubjectPrefix = ""
	assert.Equal(t, "participantAdded", cfg.Subject(TopicParticipantAdded))
}

func TestTopic_Valid(t *testing.T) {
	for _, topic := range Topics() {
		assert.True(t, topic.Valid(), topic)
	}
	assert.False(t, Topic("locationCreated").Valid())
}

func TestBus_FanOutToEverySubscriber(t *testing.T) {
	b, broker := newMemoryBus(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, err := Listen[note](ctx, b, TopicUserCreated)
	require.NoError(t, err)
	second, err := Listen[note](ctx, b, TopicUserCreated)
	require.NoError(t, err)
	assert.Equal(t, 2, b.SubscriberCount(TopicUserCreated))

	require.NoError(t, b.Publish(ctx, TopicUserCreated, note{ID: "u-1", Name: "Grace"}))

	want := note{ID: "u-1", Name: "Grace"}
	assert.Equal(t, want, receive(t, first))
	assert.Equal(t, want, receive(t, second))

	assert.Equal(t, uint64(1), broker.Published("eventgraph.userCreated"))
}

func TestBus_TopicsAreIsolated(t *testing.T) {
	b, _ := newMemoryBus(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := b.Subscribe(ctx, TopicEventCreated)
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, TopicUserCreated, note{ID: "u-1"}))
	require.NoError(t, b.Publish(ctx, TopicEventCreated, note{ID: "e-1"}))

	assert.JSONEq(t, `{"id":"e-1","name":""}`, string(receive(t, events)))
	select {
	case extra := <-events:
		t.Fatalf("unexpected message %s", extra)
	default:
	}
}

func TestBus_NoSubscribers(t *testing.T) {
	b, broker := newMemoryBus(t, Config{})

	require.NoError(t, b.Publish(context.Background(), TopicParticipantAdded, note{ID: "p-1"}))
	assert.Equal(t, uint64(1), broker.Published("eventgraph.participantAdded"))
}

func TestMemoryBroker_DoesNotRetainPayloads(t *testing.T) {
	broker := NewMemoryBroker()
	ctx := context.Background()
	require.NoError(t, broker.Connect(ctx))

	payload := make([]byte, 1024)
	for i := 0; i < 10000; i++ {
		require.NoError(t, broker.Publish(ctx, "eventgraph.userCreated", payload))
	}
	assert.Equal(t, uint64(10000), broker.Published("eventgraph.userCreated"))

	// A late subscriber gets no replay of earlier messages.
	var got [][]byte
	require.NoError(t, broker.Subscribe(ctx, "eventgraph.userCreated", func(_ context.Context, data []byte) {
		got = append(got, data)
	}))
	assert.Empty(t, got)

	require.NoError(t, broker.Publish(ctx, "eventgraph.userCreated", []byte(`{"id":"u-1"}`)))
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"id":"u-1"}`, string(got[0]))
	assert.Zero(t, broker.Published("eventgraph.eventCreated"))
}

func TestBus_CancelClosesChannel(t *testing.T) {
	b, _ := newMemoryBus(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := b.Subscribe(ctx, TopicUserCreated)
	require.NoError(t, err)
	require.Equal(t, 1, b.SubscriberCount(TopicUserCreated))

	cancel()

	require.Eventually(t, func() bool {
		return b.SubscriberCount(TopicUserCreated) == 0
	}, time.Second, 5*time.Millisecond)

	_, ok := <-ch
	assert.False(t, ok)

	// Publishing after the subscriber left must not panic.
	require.NoError(t, b.Publish(context.Background(), TopicUserCreated, note{ID: "u-2"}))
}

func TestBus_FullQueueDropsMessages(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	broker := NewMemoryBroker()
	b, err := New(broker, Config{Backend: BackendMemory, BufferSize: 2}, WithMetrics(registry.CoreMetrics()))
	require.NoError(t, err)
	require.NoError(t, b.Connect(context.Background()))
	defer b.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, TopicEventCreated)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Publish(ctx, TopicEventCreated, note{ID: fmt.Sprintf("e-%d", i)}))
	}

	assert.JSONEq(t, `{"id":"e-0","name":""}`, string(receive(t, ch)))
	assert.JSONEq(t, `{"id":"e-1","name":""}`, string(receive(t, ch)))
	select {
	case extra := <-ch:
		t.Fatalf("expected drops, got %s", extra)
	default:
	}
}

func TestBus_UnknownTopic(t *testing.T) {
	b, _ := newMemoryBus(t, Config{})

	err := b.Publish(context.Background(), Topic("locationCreated"), note{})
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, err = b.Subscribe(context.Background(), Topic("locationCreated"))
	require.Error(t, err)
}

func TestBus_CloseEndsSubscriptions(t *testing.T) {
	broker := NewMemoryBroker()
	b, err := New(broker, Config{Backend: BackendMemory})
	require.NoError(t, err)
	require.NoError(t, b.Connect(context.Background()))
	assert.True(t, b.Connected())

	ch, err := b.Subscribe(context.Background(), TopicUserCreated)
	require.NoError(t, err)

	require.NoError(t, b.Close(context.Background()))
	assert.False(t, b.Connected())

	_, ok := <-ch
	assert.False(t, ok)

	_, err = b.Subscribe(context.Background(), TopicUserCreated)
	assert.ErrorIs(t, err, errors.ErrShuttingDown)
	require.NoError(t, b.Close(context.Background()))
}

func TestBus_MissingAddressRetriesUntilShutdown(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "nats without host", cfg: Config{Backend: BackendNATS, Port: 4222, Password: "s3cret"}},
		{name: "redis without port", cfg: Config{Backend: BackendRedis, Host: "localhost", Password: "s3cret"}},
		{name: "nats without credential", cfg: Config{Backend: BackendNATS, Host: "localhost", Port: 4222}},
		{name: "redis without credential", cfg: Config{Backend: BackendRedis, Host: "localhost", Port: 6379}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.ReconnectStepStr = "1ms"
			tt.cfg.ReconnectMaxStr = "5ms"
			b, err := Open(tt.cfg)
			require.NoError(t, err)

			err = b.Connect(context.Background())
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrMissingConfig)
			assert.True(t, errors.IsTransient(err))

			ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
			defer cancel()

			done := make(chan error, 1)
			go func() { done <- b.Run(ctx) }()

			select {
			case err := <-done:
				assert.NoError(t, err)
			case <-time.After(2 * time.Second):
				t.Fatal("Run did not return after shutdown")
			}
			assert.False(t, b.Connected())
			assert.ErrorIs(t, b.LastError(), errors.ErrMissingConfig)

			err = b.Publish(context.Background(), TopicUserCreated, note{})
			assert.ErrorIs(t, err, errors.ErrNoConnection)
		})
	}
}

func TestBus_RunConnectsMemory(t *testing.T) {
	b, err := Open(Config{Backend: BackendMemory})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, b.Connected, time.Second, 5*time.Millisecond)
	assert.NoError(t, b.LastError())

	sub, err := Listen[note](ctx, b, TopicParticipantAdded)
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, TopicParticipantAdded, note{ID: "p-9"}))
	assert.Equal(t, "p-9", receive(t, sub).ID)

	cancel()
	require.NoError(t, <-done)
	assert.False(t, b.Connected())
}
