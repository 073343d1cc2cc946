package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		args  []string
		check func(t *testing.T, cfg *CLIConfig)
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg *CLIConfig) {
				assert.Empty(t, cfg.ConfigPath)
				assert.Equal(t, ".env", cfg.EnvFile)
				assert.Empty(t, cfg.LogLevel)
				assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
				assert.Zero(t, cfg.MetricsPort)
			},
		},
		{
			name: "flags",
			args: []string{"-c", "eventgraph.yaml", "--log-format", "text", "--shutdown-timeout", "5s", "--validate"},
			check: func(t *testing.T, cfg *CLIConfig) {
				assert.Equal(t, "eventgraph.yaml", cfg.ConfigPath)
				assert.Equal(t, "text", cfg.LogFormat)
				assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
				assert.True(t, cfg.Validate)
			},
		},
		{
			name: "environment fallbacks",
			env: map[string]string{
				"EVENTGRAPH_CONFIG":           "/etc/eventgraph.json",
				"EVENTGRAPH_METRICS_PORT":     "9102",
				"EVENTGRAPH_SHUTDOWN_TIMEOUT": "12s",
			},
			check: func(t *testing.T, cfg *CLIConfig) {
				assert.Equal(t, "/etc/eventgraph.json", cfg.ConfigPath)
				assert.Equal(t, 9102, cfg.MetricsPort)
				assert.Equal(t, 12*time.Second, cfg.ShutdownTimeout)
			},
		},
		{
			name: "debug forces debug level",
			args: []string{"--debug", "--log-level", "warn"},
			check: func(t *testing.T, cfg *CLIConfig) {
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			fs := flag.NewFlagSet("test", flag.ContinueOnError)
			cfg, err := parseFlags(fs, tt.args)
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestValidateFlags(t *testing.T) {
	valid := func() *CLIConfig {
		return &CLIConfig{ShutdownTimeout: time.Second}
	}

	tests := []struct {
		name    string
		mutate  func(c *CLIConfig)
		wantErr bool
	}{
		{name: "valid", mutate: func(*CLIConfig) {}},
		{name: "missing config file", mutate: func(c *CLIConfig) { c.ConfigPath = "/no/such/file.json" }, wantErr: true},
		{name: "bad log level", mutate: func(c *CLIConfig) { c.LogLevel = "loud" }, wantErr: true},
		{name: "bad log format", mutate: func(c *CLIConfig) { c.LogFormat = "xml" }, wantErr: true},
		{name: "zero shutdown timeout", mutate: func(c *CLIConfig) { c.ShutdownTimeout = 0 }, wantErr: true},
		{name: "metrics port out of range", mutate: func(c *CLIConfig) { c.MetricsPort = 70000 }, wantErr: true},
		{
			name:   "version skips validation",
			mutate: func(c *CLIConfig) { c.ShowVersion = true; c.LogLevel = "loud" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := validateFlags(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, appName, entry["service"])
	assert.Equal(t, Version, entry["version"])
	assert.Equal(t, "value", entry["key"])
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eventgraph.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\nbus:\n  backend: memory\n"), 0o600))

	cfg, err := loadConfig(&CLIConfig{ConfigPath: path, LogFormat: "text"})
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level, "config file applies when the flag is unset")
	assert.Equal(t, "text", cfg.Log.Format, "flags override the config file")

	cfg, err = loadConfig(&CLIConfig{ConfigPath: path, LogLevel: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--version"}, &out))
	assert.Equal(t, "eventgraph version "+Version+"\n", out.String())
}

func TestRun_Validate(t *testing.T) {
	t.Setenv("EVENTGRAPH_BUS_BACKEND", "memory")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"--validate", "--log-format", "text"}, &out))
	assert.Contains(t, out.String(), "Configuration is valid")
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("EVENTGRAPH_BUS_BACKEND", "carrier-pigeon")
	err := run(context.Background(), []string{"--validate"}, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRun_ServesUntilCancelled(t *testing.T) {
	t.Setenv("EVENTGRAPH_BUS_BACKEND", "memory")
	t.Setenv("EVENTGRAPH_HTTP_ADDR", "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"--shutdown-timeout", "5s"}, io.Discard)
	}()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("run did not return after cancellation")
	}
}
