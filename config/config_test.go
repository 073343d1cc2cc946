package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/eventgraph/bus"
	"github.com/c360/eventgraph/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":8080", cfg.GraphQL.BindAddress)
	assert.Equal(t, "/graphql", cfg.GraphQL.Path)
	assert.Equal(t, bus.BackendNATS, cfg.Bus.Backend)
	assert.Empty(t, cfg.Bus.Host, "bus host has no default")
	assert.Zero(t, cfg.Bus.Port, "bus port has no default")
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.False(t, cfg.Store.StrictReferences)
}

func TestLogConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		want    LogConfig
		wantErr bool
	}{
		{name: "empty takes defaults", cfg: LogConfig{}, want: LogConfig{Level: "info", Format: "text"}},
		{name: "case folded", cfg: LogConfig{Level: "DEBUG", Format: "JSON"}, want: LogConfig{Level: "debug", Format: "json"}},
		{name: "unknown level", cfg: LogConfig{Level: "verbose"}, wantErr: true},
		{name: "unknown format", cfg: LogConfig{Format: "xml"}, wantErr: true},
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
			assert.Equal(t, tt.want, tt.cfg)
		})
	}
}

func TestLoader_LoadJSON(t *testing.T) {
	path := writeFile(t, "eventgraph.json", `{
		"graphql": {"bind_address": ":9090", "enable_playground": false},
		"bus": {"backend": "redis", "host": "cache.internal", "port": 6379, "reconnect_max": "5s"},
		"store": {"strict_references": true}
	}`)

	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, ":9090", cfg.GraphQL.BindAddress)
	assert.False(t, cfg.GraphQL.EnablePlayground)
	assert.Equal(t, "/graphql", cfg.GraphQL.Path, "fields absent from the file keep their defaults")
	assert.True(t, cfg.GraphQL.EnableIntrospection)

	assert.Equal(t, bus.BackendRedis, cfg.Bus.Backend)
	assert.Equal(t, "cache.internal", cfg.Bus.Host)
	assert.Equal(t, 6379, cfg.Bus.Port)
	assert.Equal(t, 5*time.Second, cfg.Bus.Policy().Max)
	assert.Equal(t, "eventgraph", cfg.Bus.SubjectPrefix)

	assert.True(t, cfg.Store.StrictReferences)
}

func TestLoader_LoadYAML(t *testing.T) {
	path := writeFile(t, "eventgraph.yaml", `
graphql:
  path: /api/graphql
  cors_origins:
    - https://app.example.com
  rate_limit:
    requests_per_second: 20
bus:
  backend: memory
log:
  level: debug
  format: json
`)

	loader := NewLoader()
	loader.EnableValidation(true)
	cfg, err := loader.LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/api/graphql", cfg.GraphQL.Path)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.GraphQL.CORSOrigins)
	assert.Equal(t, 20.0, cfg.GraphQL.RateLimit.RequestsPerSecond)
	assert.Equal(t, 20, cfg.GraphQL.RateLimit.Burst)
	assert.Equal(t, bus.BackendMemory, cfg.Bus.Backend)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoader_Layers(t *testing.T) {
	base := writeFile(t, "base.json", `{"bus": {"host": "nats-a", "port": 4222}, "log": {"level": "warn"}}`)
	override := writeFile(t, "override.yml", "bus:\n  host: nats-b\n")

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(override)
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "nats-b", cfg.Bus.Host)
	assert.Equal(t, 4222, cfg.Bus.Port, "later layers only override the fields they set")
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("EVENTGRAPH_BUS_BACKEND", "REDIS")
	t.Setenv("EVENTGRAPH_BUS_HOST", "redis.internal")
	t.Setenv("EVENTGRAPH_BUS_PORT", "6380")
	t.Setenv("EVENTGRAPH_BUS_USERNAME", "svc")
	t.Setenv("EVENTGRAPH_BUS_PASSWORD", "hunter2")
	t.Setenv("EVENTGRAPH_HTTP_ADDR", "127.0.0.1:7000")
	t.Setenv("EVENTGRAPH_FIXTURE", "/srv/data.yaml")
	t.Setenv("EVENTGRAPH_STRICT_REFERENCES", "true")

	path := writeFile(t, "eventgraph.json", `{"bus": {"host": "from-file"}}`)
	cfg, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, bus.BackendRedis, cfg.Bus.Backend)
	assert.Equal(t, "redis.internal", cfg.Bus.Host, "environment wins over files")
	assert.Equal(t, 6380, cfg.Bus.Port)
	assert.Equal(t, "svc", cfg.Bus.Username)
	assert.Equal(t, "hunter2", cfg.Bus.Password)
	assert.Equal(t, "127.0.0.1:7000", cfg.GraphQL.BindAddress)
	assert.Equal(t, "/srv/data.yaml", cfg.Store.FixturePath)
	assert.True(t, cfg.Store.StrictReferences)

	assert.NotContains(t, cfg.String(), "hunter2")
}

func TestLoader_EnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "EVENTGRAPH_BUS_HOST=dotenv-host\nEVENTGRAPH_BUS_PORT=4333\n")
	t.Setenv("EVENTGRAPH_BUS_PORT", "4444")

	loader := NewLoader()
	loader.AddEnvFile(envFile)
	loader.AddEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "dotenv-host", cfg.Bus.Host)
	assert.Equal(t, 4444, cfg.Bus.Port, "process environment wins over .env")

	_, isSet := os.LookupEnv("EVENTGRAPH_BUS_HOST")
	assert.False(t, isSet, ".env values do not leak into the process environment")
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) *Loader
	}{
		{
			name: "missing file",
			setup: func(t *testing.T) *Loader {
				l := NewLoader()
				l.AddLayer(filepath.Join(t.TempDir(), "nope.json"))
				return l
			},
		},
		{
			name: "unsupported extension",
			setup: func(t *testing.T) *Loader {
				l := NewLoader()
				l.AddLayer(writeFile(t, "eventgraph.toml", "bus = 1"))
				return l
			},
		},
		{
			name: "malformed json",
			setup: func(t *testing.T) *Loader {
				l := NewLoader()
				l.AddLayer(writeFile(t, "eventgraph.json", `{"bus": {"host": }`))
				return l
			},
		},
		{
			name: "malformed yaml",
			setup: func(t *testing.T) *Loader {
				l := NewLoader()
				l.AddLayer(writeFile(t, "eventgraph.yaml", "bus: [unclosed"))
				return l
			},
		},
		{
			name: "non-numeric port",
			setup: func(t *testing.T) *Loader {
				t.Setenv("EVENTGRAPH_BUS_PORT", "four")
				return NewLoader()
			},
		},
		{
			name: "non-boolean strict references",
			setup: func(t *testing.T) *Loader {
				t.Setenv("EVENTGRAPH_STRICT_REFERENCES", "sometimes")
				return NewLoader()
			},
		},
		{
			name: "validation enabled rejects bad values",
			setup: func(t *testing.T) *Loader {
				t.Setenv("EVENTGRAPH_BUS_BACKEND", "kafka")
				l := NewLoader()
				l.EnableValidation(true)
				return l
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.setup(t).Load()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err), "got %v", err)
		})
	}
}

func TestLoader_EnvPrefix(t *testing.T) {
	t.Setenv("CUSTOM_BUS_HOST", "custom")
	loader := NewLoader()
	loader.SetEnvPrefix("CUSTOM")
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.Bus.Host)
}

func TestValidateJSONDepth(t *testing.T) {
	assert.NoError(t, validateJSONDepth([]byte(`{"a": [1, {"b": "}"}]}`)))
	assert.Error(t, validateJSONDepth([]byte(`{"a": [}`)))

	deep := make([]byte, 0, 2*(maxJSONDepth+1))
	for i := 0; i <= maxJSONDepth; i++ {
		deep = append(deep, '[')
	}
	for i := 0; i <= maxJSONDepth; i++ {
		deep = append(deep, ']')
	}
	assert.Error(t, validateJSONDepth(deep))
}

func TestValidateConfigPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "relative json", path: "configs/eventgraph.json"},
		{name: "relative yml", path: "eventgraph.YML"},
		{name: "absolute yaml", path: filepath.Join(t.TempDir(), "eventgraph.yaml")},
		{name: "empty", path: "", wantErr: true},
		{name: "escapes working directory", path: "../../etc/eventgraph.json", wantErr: true},
		{name: "unsupported extension", path: "eventgraph.ini", wantErr: true},
		{name: "too long", path: strings.Repeat("a", maxPathLen+1) + ".json", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfigPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEnvVar(t *testing.T) {
	assert.NoError(t, validateEnvVar("EVENTGRAPH_BUS_HOST", ""))
	assert.NoError(t, validateEnvVar("EVENTGRAPH_BUS_HOST", "redis"))
	assert.Error(t, validateEnvVar("EVENTGRAPH_BUS_HOST", "red\x00is"))
	assert.Error(t, validateEnvVar("EVENTGRAPH_BUS_HOST", strings.Repeat("x", maxEnvVarLen+1)))
}
