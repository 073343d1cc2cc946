package graphql

import (
	"fmt"
	"time"

	"github.com/c360/eventgraph/errors"
)

// Config holds configuration for the GraphQL gateway
type Config struct {
	// BindAddress is the HTTP bind address (default: ":8080")
	BindAddress string `json:"bind_address" yaml:"bind_address"`

	// Path is the GraphQL endpoint path (default: "/graphql")
	Path string `json:"path" yaml:"path"`

	// EnablePlayground serves GraphQL Playground at / (default: true)
	EnablePlayground bool `json:"enable_playground" yaml:"enable_playground"`

	// EnableIntrospection allows __schema and __type queries (default: true)
	EnableIntrospection bool `json:"enable_introspection" yaml:"enable_introspection"`

	// EnableCORS enables CORS headers (default: true)
	EnableCORS bool `json:"enable_cors" yaml:"enable_cors"`

	// CORSOrigins lists allowed CORS origins (default: ["*"])
	CORSOrigins []string `json:"cors_origins,omitempty" yaml:"cors_origins,omitempty"`

	// TimeoutStr bounds reading a request and writing a non-streaming response (default: "30s")
	TimeoutStr string `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// KeepAliveStr is the websocket keep-alive ping interval; "0s" disables pings (default: "25s")
	KeepAliveStr string `json:"keep_alive,omitempty" yaml:"keep_alive,omitempty"`

	// MaxQueryDepth limits selection nesting (default: 10)
	MaxQueryDepth int `json:"max_query_depth,omitempty" yaml:"max_query_depth,omitempty"`

	// MaxComplexity limits total query complexity (default: 500)
	MaxComplexity int `json:"max_complexity,omitempty" yaml:"max_complexity,omitempty"`

	// RateLimit throttles HTTP requests per client address; zero disables it
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`

	// ShutdownTimeout bounds the graceful stop once the start context ends
	// (default: 30s). The binary sets it from --shutdown-timeout.
	ShutdownTimeout time.Duration `json:"-" yaml:"-"`

	timeout   time.Duration
	keepAlive time.Duration
}

// RateLimitConfig configures the token bucket per client address
type RateLimitConfig struct {
	// RequestsPerSecond is the refill rate; 0 disables limiting
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second"`

	// Burst is the bucket size (default: requests per second rounded up, at least 1)
	Burst int `json:"burst" yaml:"burst"`
}

// Enabled reports whether rate limiting is on
func (c RateLimitConfig) Enabled() bool {
	return c.RequestsPerSecond > 0
}

// Validate ensures the configuration is valid
func (c *Config) Validate() error {
	if c.BindAddress == "" {
		c.BindAddress = ":8080"
	}

	if c.Path == "" {
		c.Path = "/graphql"
	}
	if c.Path[0] != '/' {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"path must start with /")
	}
	if c.Path == "/" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"path must not be / (reserved for the playground)")
	}

	if c.TimeoutStr == "" {
		c.timeout = 30 * time.Second
	} else {
		timeout, err := time.ParseDuration(c.TimeoutStr)
		if err != nil {
			return errors.WrapInvalid(err, "Config", "Validate",
				fmt.Sprintf("invalid timeout format: %s", c.TimeoutStr))
		}
		if timeout < 100*time.Millisecond || timeout > 5*time.Minute {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"timeout must be between 100ms and 5m")
		}
		c.timeout = timeout
	}

	if c.KeepAliveStr == "" {
		c.keepAlive = 25 * time.Second
	} else {
		keepAlive, err := time.ParseDuration(c.KeepAliveStr)
		if err != nil {
			return errors.WrapInvalid(err, "Config", "Validate",
				fmt.Sprintf("invalid keep_alive format: %s", c.KeepAliveStr))
		}
		if keepAlive < 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
				"keep_alive must not be negative")
		}
		c.keepAlive = keepAlive
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"shutdown timeout must not be negative")
	}

	if c.MaxQueryDepth == 0 {
		c.MaxQueryDepth = 10
	}
	if c.MaxQueryDepth < 1 || c.MaxQueryDepth > 50 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"max_query_depth must be between 1 and 50")
	}

	if c.MaxComplexity == 0 {
		c.MaxComplexity = 500
	}
	if c.MaxComplexity < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"max_complexity must be positive")
	}

	if c.RateLimit.RequestsPerSecond < 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"rate_limit.requests_per_second must not be negative")
	}
	if c.RateLimit.Enabled() && c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = int(c.RateLimit.RequestsPerSecond + 0.999)
		if c.RateLimit.Burst < 1 {
			c.RateLimit.Burst = 1
		}
	}

	if c.EnableCORS && len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}

	return nil
}

// Timeout returns the parsed timeout duration
func (c *Config) Timeout() time.Duration {
	if c.timeout == 0 {
		return 30 * time.Second
	}
	return c.timeout
}

// KeepAlive returns the parsed websocket ping interval
func (c *Config) KeepAlive() time.Duration {
	return c.keepAlive
}

// DefaultConfig returns default GraphQL gateway configuration
func DefaultConfig() Config {
	return Config{
		BindAddress:         ":8080",
		Path:                "/graphql",
		EnablePlayground:    true,
		EnableIntrospection: true,
		EnableCORS:          true,
		CORSOrigins:         []string{"*"},
		TimeoutStr:          "30s",
		KeepAliveStr:        "25s",
		MaxQueryDepth:       10,
		MaxComplexity:       500,
		ShutdownTimeout:     30 * time.Second,
	}
}
