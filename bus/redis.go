package bus

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/c360/eventgraph/errors"
	"github.com/c360/eventgraph/pkg/retry"
)

// RedisBroker carries bus traffic over Redis pub/sub. Publishing and
// subscribing use separate clients so a subscriber connection never blocks
// a publish.
type RedisBroker struct {
	addr     string
	username string
	password string
	policy   retry.Linear
	timeout  time.Duration
	logger   *slog.Logger

	onDisconnect func(error)
	onReconnect  func()

	mu      sync.Mutex
	pub     *redis.Client
	sub     *redis.Client
	pubsubs []*redis.PubSub
	closed  bool
	wg      sync.WaitGroup
}

// RedisOption configures a RedisBroker.
type RedisOption func(*RedisBroker)

// WithRedisCredentials sets the AUTH username and password.
func WithRedisCredentials(username, password string) RedisOption {
	return func(r *RedisBroker) {
		r.username = username
		r.password = password
	}
}

// WithRedisPolicy sets the backoff between connection retries.
func WithRedisPolicy(policy retry.Linear) RedisOption {
	return func(r *RedisBroker) { r.policy = policy }
}

// WithRedisTimeout bounds dialing and the connect ping.
func WithRedisTimeout(d time.Duration) RedisOption {
	return func(r *RedisBroker) { r.timeout = d }
}

// WithRedisLogger sets the logger.
func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(r *RedisBroker) { r.logger = logger }
}

// WithRedisCallbacks registers link state callbacks. Either may be nil.
func WithRedisCallbacks(onDisconnect func(error), onReconnect func()) RedisOption {
	return func(r *RedisBroker) {
		r.onDisconnect = onDisconnect
		r.onReconnect = onReconnect
	}
}

// NewRedisBroker creates a broker for the server at addr. No connection is
// made until Connect.
func NewRedisBroker(addr string, opts ...RedisOption) *RedisBroker {
	r := &RedisBroker{
		addr:    addr,
		policy:  retry.Reconnect(),
		timeout: 5 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisBroker) options() *redis.Options {
	return &redis.Options{
		Addr:            r.addr,
		Username:        r.username,
		Password:        r.password,
		DialTimeout:     r.timeout,
		MinRetryBackoff: r.policy.Step,
		MaxRetryBackoff: r.policy.Max,
	}
}

// Connect creates the clients on first use and pings the server.
func (r *RedisBroker) Connect(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return retry.NonRetryable(errors.ErrShuttingDown)
	}
	if r.pub == nil {
		r.pub = redis.NewClient(r.options())
		r.sub = redis.NewClient(r.options())
	}
	pub := r.pub
	r.mu.Unlock()

	pingCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := pub.Ping(pingCtx).Err(); err != nil {
		return errors.WrapTransient(err, "RedisBroker", "Connect", "ping "+r.addr)
	}
	return nil
}

// Publish sends data on the channel named subject.
func (r *RedisBroker) Publish(ctx context.Context, subject string, data []byte) error {
	r.mu.Lock()
	pub := r.pub
	r.mu.Unlock()

	if pub == nil {
		return errors.ErrNoConnection
	}
	if err := pub.Publish(ctx, subject, data).Err(); err != nil {
		return errors.WrapTransient(err, "RedisBroker", "Publish", "publish to "+subject)
	}
	return nil
}

// Subscribe joins the channel named subject and calls handler for each
// message until Close. The returned error reports whether the server
// confirmed the subscription.
func (r *RedisBroker) Subscribe(ctx context.Context, subject string, handler func(context.Context, []byte)) error {
	r.mu.Lock()
	sub := r.sub
	closed := r.closed
	r.mu.Unlock()

	if closed || sub == nil {
		return errors.ErrNoConnection
	}

	ps := sub.Subscribe(ctx, subject)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return errors.WrapTransient(err, "RedisBroker", "Subscribe", "subscribe to "+subject)
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = ps.Close()
		return errors.ErrNoConnection
	}
	r.pubsubs = append(r.pubsubs, ps)
	r.wg.Add(1)
	r.mu.Unlock()

	// The receive loop outlives the caller's context; Close ends it.
	go r.receive(context.WithoutCancel(ctx), ps, subject, handler)
	return nil
}

// receive reads messages until the pubsub is closed. go-redis re-dials and
// re-subscribes internally after a read error; the loop only paces retries.
func (r *RedisBroker) receive(ctx context.Context, ps *redis.PubSub, subject string, handler func(context.Context, []byte)) {
	defer r.wg.Done()

	failures := 0
	for {
		msg, err := ps.ReceiveMessage(ctx)
		if err != nil {
			if stderrors.Is(err, redis.ErrClosed) || r.isClosed() {
				return
			}
			failures++
			if failures == 1 && r.onDisconnect != nil {
				r.onDisconnect(err)
			}
			delay := r.policy.Delay(failures)
			r.logger.Warn("Redis subscription interrupted",
				"subject", subject, "attempt", failures, "retry_in", delay, "error", err)
			if retry.Sleep(ctx, delay) != nil {
				return
			}
			continue
		}

		if failures > 0 {
			failures = 0
			r.logger.Info("Redis subscription restored", "subject", subject)
			if r.onReconnect != nil {
				r.onReconnect()
			}
		}

		msgCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		handler(msgCtx, []byte(msg.Payload))
		cancel()
	}
}

func (r *RedisBroker) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Close ends every subscription and closes both clients.
func (r *RedisBroker) Close(_ context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	pubsubs := r.pubsubs
	r.pubsubs = nil
	pub, sub := r.pub, r.sub
	r.mu.Unlock()

	var errs []error
	for _, ps := range pubsubs {
		if err := ps.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.wg.Wait()

	if pub != nil {
		if err := pub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if sub != nil {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
