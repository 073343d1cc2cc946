package graphql

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/c360/eventgraph/bus"
	"github.com/c360/eventgraph/errors"
	"github.com/c360/eventgraph/gateway/graphql/generated"
	"github.com/c360/eventgraph/health"
	"github.com/c360/eventgraph/metric"
	"github.com/c360/eventgraph/store"
)

// Gateway serves the GraphQL API over HTTP and websockets.
type Gateway struct {
	config   Config
	store    *store.Store
	bus      *bus.Bus
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	metrics  *metric.Metrics

	handler *handler.Server
	server  *Server

	// Lifecycle state (atomic operations, no mutex needed for running flag)
	running atomic.Bool

	// Protects startTime and lastActivity for concurrent reads
	mu           sync.RWMutex
	startTime    time.Time
	lastActivity time.Time

	requestsTotal   atomic.Uint64
	requestsSuccess atomic.Uint64
	requestsFailed  atomic.Uint64
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithLogger sets the gateway logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMetricsRegistry records operation metrics in registry and serves it
// at /metrics.
func WithMetricsRegistry(registry *metric.MetricsRegistry) Option {
	return func(g *Gateway) { g.registry = registry }
}

// New creates a gateway serving st and announcing creations on b.
func New(config Config, st *store.Store, b *bus.Bus, opts ...Option) (*Gateway, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "GraphQLGateway", "New", "config validation")
	}
	if st == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "GraphQLGateway", "New", "store is required")
	}
	if b == nil {
		return nil, errors.WrapFatal(errors.ErrMissingConfig, "GraphQLGateway", "New", "bus is required")
	}

	g := &Gateway{
		config: config,
		store:  st,
		bus:    b,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.logger = g.logger.With("component", "graphql-gateway")

	serverOpts := []ServerOption{
		WithHealth(g.Health),
		WithRateLimit(config.RateLimit, func() { g.metrics.RecordRequestRejected() }),
	}
	if g.registry != nil {
		g.metrics = g.registry.CoreMetrics()
		g.registerStoreGauges()
		serverOpts = append(serverOpts, WithMetricsHandler(g.registry.Handler()))
	}

	resolver := &Resolver{
		Store:   st,
		Bus:     b,
		Logger:  g.logger,
		Metrics: g,
	}
	g.handler = g.newHandler(resolver)

	server, err := NewServer(config, g.handler, g.logger, serverOpts...)
	if err != nil {
		return nil, errors.WrapFatal(err, "GraphQLGateway", "New", "create server")
	}
	g.server = server

	return g, nil
}

func (g *Gateway) newHandler(resolver *Resolver) *handler.Server {
	srv := handler.New(generated.NewExecutableSchema(generated.Config{Resolvers: resolver}))

	origins := g.config.CORSOrigins
	checkCORS := g.config.EnableCORS
	srv.AddTransport(transport.Websocket{
		KeepAlivePingInterval: g.config.KeepAlive(),
		Upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || !checkCORS || originAllowed(origins, origin)
			},
		},
	})
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})

	if g.config.EnableIntrospection {
		srv.Use(extension.Introspection{})
	}
	if g.config.MaxComplexity > 0 {
		srv.Use(extension.FixedComplexityLimit(g.config.MaxComplexity))
	}
	srv.Use(depthLimit{max: g.config.MaxQueryDepth})

	srv.SetErrorPresenter(presentError)
	srv.SetRecoverFunc(recoverFunc(g.logger))
	srv.AroundOperations(g.observeOperation)

	return srv
}

// observeOperation counts each operation once. Queries and mutations are
// timed to their response, subscriptions to the end of the stream.
func (g *Gateway) observeOperation(ctx context.Context, next graphql.OperationHandler) graphql.ResponseHandler {
	oc := graphql.GetOperationContext(ctx)
	opType := "unknown"
	if oc.Operation != nil {
		opType = string(oc.Operation.Operation)
	}
	name := oc.OperationName
	if name == "" {
		name = "anonymous"
	}
	start := time.Now()
	responses := next(ctx)

	recorded := false
	finish := func(failed bool) {
		if recorded {
			return
		}
		recorded = true
		g.metrics.RecordOperation(name, opType, failed, time.Since(start))
		g.recordRequest(!failed)
	}

	return func(ctx context.Context) *graphql.Response {
		resp := responses(ctx)
		switch {
		case resp == nil:
			finish(false)
		case opType != string(ast.Subscription):
			finish(len(resp.Errors) > 0)
		}
		return resp
	}
}

func (g *Gateway) registerStoreGauges() {
	for _, kind := range []string{store.KindUser, store.KindEvent, store.KindLocation, store.KindParticipant} {
		gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace:   "eventgraph",
			Subsystem:   "store",
			Name:        "records",
			Help:        "Number of records held per kind",
			ConstLabels: prometheus.Labels{"kind": kind},
		}, func() float64 {
			return float64(g.store.Counts()[kind])
		})

		metricName := "records_" + strings.ToLower(kind)
		if err := g.registry.RegisterGaugeFunc("store", metricName, gauge); err != nil {
			g.logger.Warn("Store gauge not registered", "kind", kind, "error", err)
		}
	}
}

// Start serves until ctx is cancelled.
func (g *Gateway) Start(ctx context.Context) error {
	if g.running.Load() {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "GraphQLGateway", "Start",
			"gateway already running")
	}

	g.mu.Lock()
	g.running.Store(true)
	g.startTime = time.Now()
	g.mu.Unlock()

	g.logger.Info("GraphQL gateway starting")

	ready := make(chan struct{})
	errChan := make(chan error, 1)

	go func() {
		errChan <- g.server.Start(ctx, ready)
	}()

	select {
	case <-ready:
		g.logger.Info("GraphQL gateway started successfully",
			"address", g.server.Address(),
			"path", g.config.Path)
	case err := <-errChan:
		g.running.Store(false)
		return err
	case <-time.After(5 * time.Second):
		g.running.Store(false)
		return errors.WrapFatal(errors.ErrConnectionTimeout, "GraphQLGateway", "Start",
			"server failed to start within timeout")
	}

	err := <-errChan
	g.running.Store(false)
	g.logger.Info("GraphQL gateway stopped")
	return err
}

// Stop gracefully stops the HTTP server.
func (g *Gateway) Stop(timeout time.Duration) error {
	if !g.running.Load() {
		return nil
	}

	g.logger.Info("GraphQL gateway stopping")
	if err := g.server.Stop(timeout); err != nil {
		g.logger.Error("Failed to stop server", "error", err)
		return err
	}
	return nil
}

// Address returns the bound listener address once started.
func (g *Gateway) Address() string {
	return g.server.Address()
}

// Handler returns the complete HTTP handler, for embedding or tests.
func (g *Gateway) Handler() http.Handler {
	return g.server.Handler()
}

// Health reports the server, bus and store as one aggregate status. A
// stopped server is unhealthy; a disconnected bus only degrades the
// gateway since queries and mutations keep working without it.
func (g *Gateway) Health() health.Status {
	g.mu.RLock()
	started := g.startTime
	last := g.lastActivity
	g.mu.RUnlock()

	server := health.Healthy("server", "listening on "+g.Address())
	if !g.running.Load() {
		server = health.Unhealthy("server", "stopped")
	}

	busStatus := health.Healthy("bus", "connected")
	if !g.bus.Connected() {
		busStatus = health.FromError("bus", g.bus.LastError(), "disconnected")
		if busStatus.IsHealthy() {
			busStatus = health.Degraded("bus", "disconnected")
		}
	}

	counts := g.store.Counts()
	status := health.Aggregate("eventgraph",
		server,
		busStatus,
		health.Healthy("store", "in memory"),
	)

	m := &health.Metrics{
		Requests:     g.requestsTotal.Load(),
		ErrorCount:   g.requestsFailed.Load(),
		LastActivity: last,
		Records:      counts,
	}
	if !started.IsZero() {
		m.Uptime = time.Since(started).Round(time.Second).String()
	}
	return status.WithMetrics(m)
}

// RecordMetrics wraps a resolver call to log its outcome and count errors.
func (g *Gateway) RecordMetrics(_ context.Context, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	duration := time.Since(start)

	if err != nil {
		code := errorCode(err)
		g.metrics.RecordResolverError(operation, code)
		if code == CodeNotFound || code == CodeInvalidInput {
			g.logger.Debug("GraphQL resolver rejected request",
				"operation", operation,
				"code", code,
				"error", err)
		} else {
			g.logger.Warn("GraphQL resolver failed",
				"operation", operation,
				"duration", duration,
				"code", code,
				"error", err)
		}
	} else {
		g.logger.Debug("GraphQL resolver succeeded",
			"operation", operation,
			"duration", duration)
	}

	return err
}

// recordRequest records request counters
func (g *Gateway) recordRequest(success bool) {
	g.requestsTotal.Add(1)
	if success {
		g.requestsSuccess.Add(1)
	} else {
		g.requestsFailed.Add(1)
	}

	g.mu.Lock()
	g.lastActivity = time.Now()
	g.mu.Unlock()
}

// Stats reports request totals since start.
func (g *Gateway) Stats() (total, failed uint64, lastActivity time.Time) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.requestsTotal.Load(), g.requestsFailed.Load(), g.lastActivity
}

var _ MetricsRecorder = (*Gateway)(nil)
