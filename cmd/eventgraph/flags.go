package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	EnvFile         string
	LogLevel        string
	LogFormat       string
	Debug           bool
	ShutdownTimeout time.Duration
	MetricsPort     int
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*CLIConfig, error) {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ConfigPath, "config",
		getEnv("EVENTGRAPH_CONFIG", ""),
		"Path to a .json/.yaml/.yml configuration file (env: EVENTGRAPH_CONFIG)")

	fs.StringVar(&cfg.ConfigPath, "c",
		getEnv("EVENTGRAPH_CONFIG", ""),
		"Path to configuration file (env: EVENTGRAPH_CONFIG)")

	fs.StringVar(&cfg.EnvFile, "env-file",
		getEnv("EVENTGRAPH_ENV_FILE", ".env"),
		"Dotenv file read for EVENTGRAPH_* overrides, skipped if absent (env: EVENTGRAPH_ENV_FILE)")

	// Log flags default to empty so the config file and EVENTGRAPH_LOG_* apply
	// unless the flag is given.
	fs.StringVar(&cfg.LogLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")

	fs.StringVar(&cfg.LogFormat, "log-format", "",
		"Log format: json, text (overrides config)")

	fs.BoolVar(&cfg.Debug, "debug",
		getEnvBool("EVENTGRAPH_DEBUG", false),
		"Enable debug logging (env: EVENTGRAPH_DEBUG)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("EVENTGRAPH_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: EVENTGRAPH_SHUTDOWN_TIMEOUT)")

	fs.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("EVENTGRAPH_METRICS_PORT", 0),
		"Serve /metrics on a dedicated port as well, 0 to disable (env: EVENTGRAPH_METRICS_PORT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	fs.Usage = func() {
		printDetailedHelp(fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if cfg.ConfigPath != "" {
		if _, err := os.Stat(cfg.ConfigPath); err != nil {
			return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
		}
	}

	if cfg.LogLevel != "" && !contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if cfg.LogFormat != "" && !contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}

	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.MetricsPort)
	}

	return nil
}

func printDetailedHelp(fs *flag.FlagSet) {
	out := fs.Output()
	_, _ = fmt.Fprintf(out, `%s - GraphQL API over users, events, locations and participants

Usage: %s [options]

Options:
`, appName, os.Args[0])
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(out, `
Examples:
  # Run against a local NATS server
  EVENTGRAPH_BUS_HOST=localhost EVENTGRAPH_BUS_PORT=4222 %s

  # Run with a config file and text logs
  %s --config=eventgraph.yaml --log-level=debug --log-format=text

  # Single process, no external broker
  EVENTGRAPH_BUS_BACKEND=memory %s

  # Validate configuration only
  %s --config=eventgraph.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
