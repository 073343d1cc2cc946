package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/c360/eventgraph/bus"
	"github.com/c360/eventgraph/errors"
	"github.com/c360/eventgraph/gateway/graphql"
	"github.com/c360/eventgraph/store"
)

// DefaultEnvPrefix prefixes every environment override.
const DefaultEnvPrefix = "EVENTGRAPH"

// Config represents the complete application configuration.
// Each section is owned and validated by the package that consumes it.
type Config struct {
	GraphQL graphql.Config `json:"graphql" yaml:"graphql"`
	Bus     bus.Config     `json:"bus" yaml:"bus"`
	Store   store.Config   `json:"store" yaml:"store"`
	Log     LogConfig      `json:"log" yaml:"log"`
}

// LogConfig selects the root logger's level and output format.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Validate fills defaults and rejects unknown levels or formats.
func (c *LogConfig) Validate() error {
	if c.Level == "" {
		c.Level = "info"
	}
	c.Level = strings.ToLower(c.Level)
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "LogConfig", "Validate",
			fmt.Sprintf("unknown log level %q", c.Level))
	}

	if c.Format == "" {
		c.Format = "text"
	}
	c.Format = strings.ToLower(c.Format)
	switch c.Format {
	case "json", "text":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "LogConfig", "Validate",
			fmt.Sprintf("unknown log format %q", c.Format))
	}
	return nil
}

// Default returns the built-in configuration. Bus host and port are left
// empty on purpose: they must come from a file or the environment.
func Default() *Config {
	return &Config{
		GraphQL: graphql.DefaultConfig(),
		Bus:     bus.DefaultConfig(),
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Validate checks every section, filling defaults as it goes.
func (c *Config) Validate() error {
	if err := c.GraphQL.Validate(); err != nil {
		return fmt.Errorf("graphql: %w", err)
	}
	if err := c.Bus.Validate(); err != nil {
		return fmt.Errorf("bus: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	return nil
}

// String returns a JSON representation of the config with secrets masked
func (c *Config) String() string {
	redacted := *c
	if redacted.Bus.Password != "" {
		redacted.Bus.Password = "***"
	}
	data, _ := json.MarshalIndent(&redacted, "", "  ")
	return string(data)
}

// Loader handles configuration loading with layers and overrides
type Loader struct {
	layers     []string
	envFiles   []string
	validation bool
	envPrefix  string
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{
		layers:    []string{},
		envPrefix: DefaultEnvPrefix,
	}
}

// AddLayer adds a configuration file layer (.json, .yaml or .yml).
// Later layers override earlier ones field by field.
func (l *Loader) AddLayer(path string) {
	l.layers = append(l.layers, path)
}

// AddEnvFile adds a dotenv file consulted for overrides. Variables already
// set in the process environment win over the file. A missing file is skipped.
func (l *Loader) AddEnvFile(path string) {
	l.envFiles = append(l.envFiles, path)
}

// SetEnvPrefix replaces the EVENTGRAPH prefix of environment overrides.
func (l *Loader) SetEnvPrefix(prefix string) {
	l.envPrefix = prefix
}

// EnableValidation enables or disables configuration validation
func (l *Loader) EnableValidation(enable bool) {
	l.validation = enable
}

// LoadFile loads configuration from a single file
func (l *Loader) LoadFile(path string) (*Config, error) {
	l.layers = []string{path}
	return l.Load()
}

// Load loads and merges all configuration layers
func (l *Loader) Load() (*Config, error) {
	cfg := Default()

	for _, path := range l.layers {
		rawConfig, err := l.loadRaw(path)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "load "+path)
		}
		cfg, err = l.mergeFromMap(cfg, rawConfig)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "merge "+path)
		}
	}

	dotenv, err := l.readEnvFiles()
	if err != nil {
		return nil, errors.WrapInvalid(err, "Loader", "Load", "read env file")
	}

	if err := l.applyEnvOverrides(cfg, dotenv); err != nil {
		return nil, err
	}

	if l.validation {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadRaw loads a configuration file as a map, by extension
func (l *Loader) loadRaw(path string) (map[string]any, error) {
	data, err := safeReadFile(path)
	if err != nil {
		return nil, err
	}

	var rawConfig map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := validateJSONDepth(data); err != nil {
			return nil, fmt.Errorf("invalid JSON structure: %w", err)
		}
		if err := json.Unmarshal(data, &rawConfig); err != nil {
			return nil, err
		}
	default:
		if err := yaml.Unmarshal(data, &rawConfig); err != nil {
			return nil, err
		}
	}
	return rawConfig, nil
}

// mergeFromMap merges configuration from a raw map, only overriding fields present in the map
func (l *Loader) mergeFromMap(base *Config, override map[string]any) (*Config, error) {
	if override == nil {
		return base, nil
	}

	baseJSON, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}

	var baseMap map[string]any
	if err := json.Unmarshal(baseJSON, &baseMap); err != nil {
		return nil, err
	}

	mergedJSON, err := json.Marshal(deepMergeMaps(baseMap, override))
	if err != nil {
		return nil, err
	}

	var merged Config
	if err := json.Unmarshal(mergedJSON, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// deepMergeMaps recursively merges two maps, with override taking precedence
func deepMergeMaps(base, override map[string]any) map[string]any {
	result := make(map[string]any, len(base))
	for k, v := range base {
		result[k] = v
	}

	for k, v := range override {
		if v == nil {
			continue
		}

		if baseMap, ok := base[k].(map[string]any); ok {
			if overrideMap, ok := v.(map[string]any); ok {
				result[k] = deepMergeMaps(baseMap, overrideMap)
				continue
			}
		}

		result[k] = v
	}

	return result
}

func (l *Loader) readEnvFiles() (map[string]string, error) {
	values := map[string]string{}
	for _, path := range l.envFiles {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}
		fileValues, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		for k, v := range fileValues {
			values[k] = v
		}
	}
	return values, nil
}

// applyEnvOverrides applies environment variable overrides
func (l *Loader) applyEnvOverrides(cfg *Config, dotenv map[string]string) error {
	lookup := func(name string) (string, bool, error) {
		key := l.envPrefix + "_" + name
		val, ok := os.LookupEnv(key)
		if !ok {
			val, ok = dotenv[key]
		}
		if !ok || val == "" {
			return "", false, nil
		}
		if err := validateEnvVar(key, val); err != nil {
			return "", false, errors.WrapInvalid(err, "Loader", "applyEnvOverrides", "read "+key)
		}
		return val, true, nil
	}

	strs := []struct {
		name string
		dst  *string
	}{
		{"HTTP_ADDR", &cfg.GraphQL.BindAddress},
		{"BUS_HOST", &cfg.Bus.Host},
		{"BUS_USERNAME", &cfg.Bus.Username},
		{"BUS_PASSWORD", &cfg.Bus.Password},
		{"FIXTURE", &cfg.Store.FixturePath},
		{"LOG_LEVEL", &cfg.Log.Level},
		{"LOG_FORMAT", &cfg.Log.Format},
	}
	for _, s := range strs {
		val, ok, err := lookup(s.name)
		if err != nil {
			return err
		}
		if ok {
			*s.dst = val
		}
	}

	if val, ok, err := lookup("BUS_BACKEND"); err != nil {
		return err
	} else if ok {
		cfg.Bus.Backend = bus.Backend(strings.ToLower(val))
	}

	if val, ok, err := lookup("BUS_PORT"); err != nil {
		return err
	} else if ok {
		port, err := strconv.Atoi(val)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides",
				fmt.Sprintf("parse %s_BUS_PORT", l.envPrefix))
		}
		cfg.Bus.Port = port
	}

	if val, ok, err := lookup("STRICT_REFERENCES"); err != nil {
		return err
	} else if ok {
		strict, err := strconv.ParseBool(val)
		if err != nil {
			return errors.WrapInvalid(err, "Loader", "applyEnvOverrides",
				fmt.Sprintf("parse %s_STRICT_REFERENCES", l.envPrefix))
		}
		cfg.Store.StrictReferences = strict
	}

	return nil
}
