package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/c360/eventgraph/errors"
	"github.com/c360/eventgraph/metric"
	"github.com/c360/eventgraph/natsclient"
	"github.com/c360/eventgraph/pkg/retry"
)

// Bus publishes creation notifications and fans them out to subscribers.
//
// One broker subscription exists per topic. Each incoming message is copied
// to every live subscriber's queue without blocking; a subscriber whose queue
// is full misses that message.
type Bus struct {
	broker  Broker
	cfg     Config
	logger  *slog.Logger
	metrics *metric.Metrics

	mu         sync.RWMutex
	subs       map[Topic]map[*subscriber]struct{}
	subscribed map[Topic]bool
	closed     bool

	connected atomic.Bool
	lastErr   atomic.Pointer[error]
}

type subscriber struct {
	ch chan []byte
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics records bus activity in m.
func WithMetrics(m *metric.Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// New creates a bus over an existing broker. cfg is validated here.
func New(broker Broker, cfg Config, opts ...Option) (*Bus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := newBus(cfg, opts...)
	b.broker = broker
	return b, nil
}

// Open validates cfg and builds the broker it names.
func Open(cfg Config, opts ...Option) (*Bus, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := newBus(cfg, opts...)

	broker, err := b.newBroker()
	if err != nil {
		return nil, err
	}
	b.broker = broker
	return b, nil
}

func newBus(cfg Config, opts ...Option) *Bus {
	b := &Bus{
		cfg:        cfg,
		logger:     slog.Default(),
		subs:       make(map[Topic]map[*subscriber]struct{}),
		subscribed: make(map[Topic]bool),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.With("component", "bus", "backend", string(cfg.Backend))
	return b
}

func (b *Bus) newBroker() (Broker, error) {
	if b.cfg.Backend == BackendMemory {
		return NewMemoryBroker(), nil
	}

	addr, missing := b.cfg.Address()
	if len(missing) > 0 {
		b.logger.Warn("Bus address incomplete; notifications stay offline",
			"missing", missing)
		return &unconfiguredBroker{backend: string(b.cfg.Backend), missing: missing}, nil
	}

	policy := b.cfg.Policy()

	onDisconnect := func(err error) {
		b.connected.Store(false)
		b.metrics.RecordBusStatus(false)
		b.logger.Warn("Bus link lost", "error", err)
	}
	onReconnect := func() {
		b.connected.Store(true)
		b.metrics.RecordBusStatus(true)
		b.metrics.RecordBusReconnect()
		b.logger.Info("Bus link restored")
	}

	switch b.cfg.Backend {
	case BackendRedis:
		return NewRedisBroker(addr,
			WithRedisCredentials(b.cfg.Username, b.cfg.Password),
			WithRedisPolicy(policy),
			WithRedisTimeout(b.cfg.ConnectTimeout()),
			WithRedisLogger(b.logger),
			WithRedisCallbacks(onDisconnect, onReconnect),
		), nil

	default:
		opts := []natsclient.ClientOption{
			natsclient.WithName("eventgraph"),
			natsclient.WithMaxReconnects(-1),
			natsclient.WithReconnectDelay(policy.Delay),
			natsclient.WithTimeout(b.cfg.ConnectTimeout()),
			natsclient.WithDrainTimeout(b.cfg.ConnectTimeout()),
			natsclient.WithPingInterval(b.cfg.PingInterval()),
			natsclient.WithLogger(natsclient.SlogLogger{Logger: b.logger}),
			natsclient.WithDisconnectCallback(onDisconnect),
			natsclient.WithReconnectCallback(onReconnect),
		}
		switch {
		case b.cfg.Username != "":
			opts = append(opts, natsclient.WithCredentials(b.cfg.Username, b.cfg.Password))
		case b.cfg.Password != "":
			opts = append(opts, natsclient.WithToken(b.cfg.Password))
		}
		return natsclient.NewClient("nats://"+addr, opts...)
	}
}

// Run connects the bus, retrying with the configured backoff until it
// succeeds, then blocks until ctx is done and closes the broker.
// It returns nil on shutdown.
func (b *Bus) Run(ctx context.Context) error {
	policy := b.cfg.Policy()

	err := retry.Forever(ctx, policy, func(attempt int) error {
		err := b.Connect(ctx)
		if err == nil {
			return nil
		}
		b.lastErr.Store(&err)
		log := b.logger.Debug
		if attempt == 1 {
			log = b.logger.Warn
		}
		log("Bus connection attempt failed",
			"attempt", attempt, "retry_in", policy.Delay(attempt), "error", err)
		return err
	})
	if err != nil && ctx.Err() == nil {
		return err
	}

	<-ctx.Done()
	return b.Close(context.WithoutCancel(ctx))
}

// Connect makes one attempt to connect the broker and subscribe every
// topic. Topics already subscribed are skipped on later attempts.
func (b *Bus) Connect(ctx context.Context) error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return retry.NonRetryable(errors.ErrShuttingDown)
	}

	if err := b.broker.Connect(ctx); err != nil {
		return err
	}

	for _, topic := range Topics() {
		b.mu.RLock()
		done := b.subscribed[topic]
		b.mu.RUnlock()
		if done {
			continue
		}

		if err := b.broker.Subscribe(ctx, b.cfg.Subject(topic), b.dispatch(topic)); err != nil {
			return errors.WrapTransient(err, "Bus", "Connect", "subscribe "+string(topic))
		}

		b.mu.Lock()
		b.subscribed[topic] = true
		b.mu.Unlock()
	}

	b.connected.Store(true)
	b.lastErr.Store(nil)
	b.metrics.RecordBusStatus(true)
	b.logger.Info("Bus connected")
	return nil
}

// dispatch returns the broker handler for topic.
func (b *Bus) dispatch(topic Topic) func(context.Context, []byte) {
	label := string(topic)
	return func(_ context.Context, data []byte) {
		b.mu.RLock()
		defer b.mu.RUnlock()

		for s := range b.subs[topic] {
			select {
			case s.ch <- data:
				b.metrics.RecordDelivered(label)
			default:
				b.metrics.RecordDropped(label)
				b.logger.Debug("Subscriber queue full, notification dropped", "topic", label)
			}
		}
	}
}

// Publish encodes v as JSON and sends it on topic. Delivery is at most once;
// with no subscribers the message is discarded.
func (b *Bus) Publish(ctx context.Context, topic Topic, v any) error {
	if !topic.Valid() {
		return errors.WrapInvalid(errors.ErrInvalidData, "Bus", "Publish",
			fmt.Sprintf("unknown topic %q", topic))
	}

	data, err := json.Marshal(v)
	if err != nil {
		return errors.WrapInvalid(err, "Bus", "Publish", "encode "+string(topic))
	}

	if err := b.broker.Publish(ctx, b.cfg.Subject(topic), data); err != nil {
		b.metrics.RecordPublishError(string(topic))
		return errors.WrapTransient(err, "Bus", "Publish", "publish "+string(topic))
	}

	b.metrics.RecordPublished(string(topic))
	return nil
}

// Subscribe returns a channel of raw notifications on topic. The channel is
// closed when ctx is done or the bus is closed.
func (b *Bus) Subscribe(ctx context.Context, topic Topic) (<-chan []byte, error) {
	if !topic.Valid() {
		return nil, errors.WrapInvalid(errors.ErrInvalidData, "Bus", "Subscribe",
			fmt.Sprintf("unknown topic %q", topic))
	}

	s := &subscriber{ch: make(chan []byte, b.cfg.BufferSize)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, errors.ErrShuttingDown
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[*subscriber]struct{})
	}
	b.subs[topic][s] = struct{}{}
	n := len(b.subs[topic])
	b.mu.Unlock()

	b.metrics.RecordSubscribers(string(topic), n)

	go func() {
		<-ctx.Done()
		b.remove(topic, s)
	}()

	return s.ch, nil
}

// remove detaches s and closes its channel. Safe to call more than once.
func (b *Bus) remove(topic Topic, s *subscriber) {
	b.mu.Lock()
	if _, ok := b.subs[topic][s]; !ok {
		b.mu.Unlock()
		return
	}
	delete(b.subs[topic], s)
	close(s.ch)
	n := len(b.subs[topic])
	b.mu.Unlock()

	b.metrics.RecordSubscribers(string(topic), n)
}

// Listen subscribes to topic and decodes each notification into T.
// Messages that do not decode are logged and skipped.
func Listen[T any](ctx context.Context, b *Bus, topic Topic) (<-chan T, error) {
	raw, err := b.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	out := make(chan T)
	go func() {
		defer close(out)
		for data := range raw {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				b.logger.Warn("Undecodable notification skipped", "topic", string(topic), "error", err)
				continue
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// SubscriberCount returns the number of live subscribers on topic.
func (b *Bus) SubscriberCount(topic Topic) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[topic])
}

// Connected reports whether the broker link is up.
func (b *Bus) Connected() bool {
	return b.connected.Load()
}

// LastError returns the error from the most recent failed connection
// attempt, or nil once the bus has connected.
func (b *Bus) LastError() error {
	if p := b.lastErr.Load(); p != nil {
		return *p
	}
	return nil
}

// Close shuts the broker and ends every subscription.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for topic, set := range b.subs {
		for s := range set {
			close(s.ch)
		}
		delete(b.subs, topic)
		b.metrics.RecordSubscribers(string(topic), 0)
	}
	b.mu.Unlock()

	b.connected.Store(false)
	b.metrics.RecordBusStatus(false)

	if err := b.broker.Close(ctx); err != nil {
		return errors.Wrap(err, "Bus", "Close", "close broker")
	}
	return nil
}
