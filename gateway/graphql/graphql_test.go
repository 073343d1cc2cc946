package graphql

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/c360/eventgraph/errors"
	"github.com/c360/eventgraph/gateway/graphql/generated"
)

// TestConfigValidation tests configuration validation
func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
		check   func(t *testing.T, c Config)
	}{
		{
			name:   "valid default config",
			config: DefaultConfig(),
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 30*time.Second, c.Timeout())
				assert.Equal(t, 25*time.Second, c.KeepAlive())
				assert.Equal(t, 30*time.Second, c.ShutdownTimeout)
			},
		},
		{
			name: "valid custom config",
			config: Config{
				BindAddress:      ":9090",
				Path:             "/api/graphql",
				EnablePlayground: true,
				TimeoutStr:       "10s",
				KeepAliveStr:     "0s",
				MaxQueryDepth:    15,
			},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 10*time.Second, c.Timeout())
				assert.Zero(t, c.KeepAlive())
			},
		},
		{
			name:   "empty config takes defaults",
			config: Config{},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, ":8080", c.BindAddress)
				assert.Equal(t, "/graphql", c.Path)
				assert.Equal(t, 10, c.MaxQueryDepth)
				assert.Equal(t, 500, c.MaxComplexity)
				assert.False(t, c.RateLimit.Enabled())
				assert.Equal(t, 30*time.Second, c.ShutdownTimeout)
			},
		},
		{
			name:   "custom shutdown timeout is kept",
			config: Config{ShutdownTimeout: 2 * time.Second},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 2*time.Second, c.ShutdownTimeout)
			},
		},
		{
			name:   "cors origins default to wildcard",
			config: Config{EnableCORS: true},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, []string{"*"}, c.CORSOrigins)
			},
		},
		{
			name:   "rate limit burst defaults to rounded rate",
			config: Config{RateLimit: RateLimitConfig{RequestsPerSecond: 2.5}},
			check: func(t *testing.T, c Config) {
				assert.True(t, c.RateLimit.Enabled())
				assert.Equal(t, 3, c.RateLimit.Burst)
			},
		},
		{
			name:   "fractional rate limit gets burst of one",
			config: Config{RateLimit: RateLimitConfig{RequestsPerSecond: 0.2}},
			check: func(t *testing.T, c Config) {
				assert.Equal(t, 1, c.RateLimit.Burst)
			},
		},
		{name: "invalid path (no leading slash)", config: Config{Path: "graphql"}, wantErr: true},
		{name: "root path is reserved", config: Config{Path: "/"}, wantErr: true},
		{name: "invalid timeout (too short)", config: Config{TimeoutStr: "10ms"}, wantErr: true},
		{name: "invalid timeout (too long)", config: Config{TimeoutStr: "10m"}, wantErr: true},
		{name: "unparseable timeout", config: Config{TimeoutStr: "soon"}, wantErr: true},
		{name: "negative keep alive", config: Config{KeepAliveStr: "-1s"}, wantErr: true},
		{name: "negative shutdown timeout", config: Config{ShutdownTimeout: -time.Second}, wantErr: true},
		{name: "invalid max query depth (too high)", config: Config{MaxQueryDepth: 100}, wantErr: true},
		{name: "negative max complexity", config: Config{MaxComplexity: -1}, wantErr: true},
		{
			name:    "negative rate limit",
			config:  Config{RateLimit: RateLimitConfig{RequestsPerSecond: -1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalid(err))
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, tt.config)
			}
		})
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"not found", errors.NotFound("User", "u-1"), CodeNotFound},
		{"wrapped not found", fmt.Errorf("lookup: %w", errors.NotFound("Event", "e-1")), CodeNotFound},
		{"deadline", context.DeadlineExceeded, CodeDeadlineExceeded},
		{"cancelled", context.Canceled, CodeCancelled},
		{"invalid", errors.WrapInvalid(errors.ErrInvalidData, "Gateway", "decode", "input"), CodeInvalidInput},
		{"fatal", errors.WrapFatal(fmt.Errorf("boom"), "Gateway", "resolve", "resolver"), CodeInternal},
		{"transient", errors.WrapTransient(fmt.Errorf("blip"), "Bus", "Publish", "publish"), CodeTransient},
		{"plain", fmt.Errorf("something odd"), CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorCode(tt.err))
		})
	}
}

func TestPresentError(t *testing.T) {
	ctx := context.Background()

	t.Run("not found carries kind and id", func(t *testing.T) {
		gqlErr := presentError(ctx, errors.NotFound("User", "u-404"))
		assert.Equal(t, "User not found", gqlErr.Message)
		assert.Equal(t, CodeNotFound, gqlErr.Extensions["code"])
		assert.Equal(t, "User", gqlErr.Extensions["kind"])
		assert.Equal(t, "u-404", gqlErr.Extensions["id"])
	})

	t.Run("fatal errors are masked", func(t *testing.T) {
		gqlErr := presentError(ctx, errors.WrapFatal(fmt.Errorf("nil map"), "Gateway", "resolve", "resolver"))
		assert.Equal(t, "internal server error", gqlErr.Message)
		assert.Equal(t, CodeInternal, gqlErr.Extensions["code"])
	})

	t.Run("plain errors keep their message", func(t *testing.T) {
		gqlErr := presentError(ctx, fmt.Errorf("introspection disabled"))
		assert.Equal(t, "introspection disabled", gqlErr.Message)
		assert.Equal(t, CodeInternal, gqlErr.Extensions["code"])
	})
}

func TestRecoverFunc(t *testing.T) {
	err := recoverFunc(discardLogger())(context.Background(), "kaboom")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Contains(t, err.Error(), "kaboom")
}

func TestSelectionDepth(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"flat", `{ users { id } }`, 2},
		{"nested", `{ users { events { location { name } } } }`, 4},
		{"introspection not counted", `{ __schema { types { name } } }`, 0},
		{"typename not counted", `{ users { __typename } }`, 1},
		{"fragment spread followed", `{ users { ...U } } fragment U on User { events { id } }`, 3},
		{"inline fragment followed", `{ users { ... on User { events { id } } } }`, 3},
		{"deepest branch wins", `{ users { id } event(id: "e") { user { events { id } } } }`, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, errs := gqlparser.LoadQuery(schema(), tt.query)
			require.Nil(t, errs)
			require.Len(t, doc.Operations, 1)
			assert.Equal(t, tt.want, selectionDepth(doc.Operations[0].SelectionSet))
		})
	}
}

func TestDepthLimit(t *testing.T) {
	doc, errs := gqlparser.LoadQuery(schema(), `{ users { events { user { id } } } }`)
	require.Nil(t, errs)
	rc := &graphql.OperationContext{Operation: doc.Operations[0]}

	assert.Nil(t, depthLimit{max: 4}.MutateOperationContext(context.Background(), rc))

	gqlErr := depthLimit{max: 3}.MutateOperationContext(context.Background(), rc)
	require.NotNil(t, gqlErr)
	assert.Equal(t, "DEPTH_LIMIT_EXCEEDED", gqlErr.Extensions["code"])
}

func TestServer_ShutdownTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BindAddress = "127.0.0.1:0"
	cfg.EnablePlayground = false
	cfg.ShutdownTimeout = 100 * time.Millisecond

	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	slow := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusOK)
	})

	srv, err := NewServer(cfg, slow, discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx, ready) }()
	<-ready

	go func() {
		res, err := http.Post("http://"+srv.Address()+cfg.Path, "application/json", nil)
		if err == nil {
			res.Body.Close()
		}
	}()
	<-entered

	started := time.Now()
	cancel()
	select {
	case err := <-done:
		require.Error(t, err, "an in-flight request outlives the shutdown budget")
		assert.True(t, errors.IsTransient(err))
		assert.Less(t, time.Since(started), 5*time.Second)
	case <-time.After(10 * time.Second):
		t.Fatal("server ignored the configured shutdown timeout")
	}
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, originAllowed([]string{"*"}, "https://anywhere.test"))
	assert.True(t, originAllowed([]string{"https://a.test", "https://b.test"}, "https://b.test"))
	assert.False(t, originAllowed([]string{"https://a.test"}, "https://b.test"))
	assert.False(t, originAllowed(nil, "https://a.test"))
}

func TestCORSMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	h := corsMiddleware([]string{"https://app.test"}, next)

	t.Run("allowed origin is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
		req.Header.Set("Origin", "https://app.test")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusTeapot, rec.Code)
		assert.Equal(t, "https://app.test", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("other origins get no headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
		req.Header.Set("Origin", "https://evil.test")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/graphql", nil)
		req.Header.Set("Origin", "https://app.test")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestRateLimiter(t *testing.T) {
	denied := 0
	rl := newRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 2}, func() { denied++ })

	assert.True(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.1"))
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"), "buckets are per client")

	h := rl.middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE_LIMITED")
	assert.Equal(t, 1, denied)
}

func schema() *ast.Schema {
	return generated.NewExecutableSchema(generated.Config{Resolvers: &Resolver{}}).Schema()
}

func TestSchemaParses(t *testing.T) {
	s := schema()
	require.NotNil(t, s.Query)
	require.NotNil(t, s.Mutation)
	require.NotNil(t, s.Subscription)

	user := s.Types["User"]
	require.NotNil(t, user)
	assert.Equal(t, ast.Object, user.Kind)
	assert.NotNil(t, user.Fields.ForName("events"))

	for _, name := range []string{"AddUserInput", "UpdateEventInput", "AddParticipantInput"} {
		def := s.Types[name]
		require.NotNil(t, def, name)
		assert.Equal(t, ast.InputObject, def.Kind)
	}
	assert.Len(t, s.Subscription.Fields, 3)
}
