// Package main runs the eventgraph GraphQL server: an in-memory record store
// served over HTTP and websockets, with creation notifications fanned out
// through a NATS, Redis or in-process bus.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/eventgraph/bus"
	"github.com/c360/eventgraph/config"
	"github.com/c360/eventgraph/gateway/graphql"
	"github.com/c360/eventgraph/metric"
	"github.com/c360/eventgraph/store"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "eventgraph"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is cancelled, then shuts down within the configured timeout.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	cliCfg, err := parseFlags(fs, args)
	if err != nil {
		if err == flag.ErrHelp {
			return nil
		}
		return fmt.Errorf("invalid flags: %w", err)
	}
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		_, _ = fmt.Fprintf(stdout, "%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		fs.SetOutput(stdout)
		printDetailedHelp(fs)
		return nil
	}

	cfg, err := loadConfig(cliCfg)
	if err != nil {
		return err
	}

	logger := setupLogger(stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	logger.Info("Starting eventgraph",
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"bus_backend", cfg.Bus.Backend)

	if cliCfg.Validate {
		logger.Debug("Effective configuration", "config", cfg.String())
		logger.Info("Configuration is valid")
		return nil
	}

	registry := metric.NewMetricsRegistry()

	st, err := store.Open(cfg.Store, store.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	b, err := bus.Open(cfg.Bus,
		bus.WithLogger(logger),
		bus.WithMetrics(registry.CoreMetrics()))
	if err != nil {
		return fmt.Errorf("open bus: %w", err)
	}

	cfg.GraphQL.ShutdownTimeout = cliCfg.ShutdownTimeout
	gw, err := graphql.New(cfg.GraphQL, st, b,
		graphql.WithLogger(logger),
		graphql.WithMetricsRegistry(registry))
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}

	var metricsServer *metric.Server
	if cliCfg.MetricsPort > 0 {
		metricsServer = metric.NewServer(cliCfg.MetricsPort, "/metrics", registry)
	}

	return serve(ctx, logger, cliCfg.ShutdownTimeout, b, gw, metricsServer)
}

// loadConfig layers the config file, the env file and the environment, then
// applies log flags on top.
func loadConfig(cliCfg *CLIConfig) (*config.Config, error) {
	loader := config.NewLoader()
	if cliCfg.ConfigPath != "" {
		loader.AddLayer(cliCfg.ConfigPath)
	}
	if cliCfg.EnvFile != "" {
		loader.AddEnvFile(cliCfg.EnvFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cliCfg.LogLevel != "" {
		cfg.Log.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Log.Format = cliCfg.LogFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// serve runs the bus connection loop, the gateway and the optional metrics
// server until ctx ends or one of them fails.
func serve(
	ctx context.Context,
	logger *slog.Logger,
	shutdownTimeout time.Duration,
	b *bus.Bus,
	gw *graphql.Gateway,
	metricsServer *metric.Server,
) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return b.Run(gctx)
	})

	g.Go(func() error {
		return gw.Start(gctx)
	})

	if metricsServer != nil {
		g.Go(func() error {
			logger.Info("Metrics server starting", "address", metricsServer.Address())
			return metricsServer.Start()
		})
		g.Go(func() error {
			<-gctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return metricsServer.Stop(stopCtx)
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		// A component failed before any shutdown signal.
		return err
	case <-ctx.Done():
	}

	logger.Info("Received shutdown signal")

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		logger.Info("eventgraph shutdown complete")
		return nil
	case <-time.After(shutdownTimeout):
		return fmt.Errorf("graceful shutdown timed out after %s", shutdownTimeout)
	}
}
