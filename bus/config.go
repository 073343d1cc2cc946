package bus

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/c360/eventgraph/errors"
	"github.com/c360/eventgraph/pkg/retry"
)

// Backend names the transport the bus runs on.
type Backend string

// Supported backends.
const (
	BackendNATS   Backend = "nats"
	BackendRedis  Backend = "redis"
	BackendMemory Backend = "memory"
)

const defaultPingInterval = 10 * time.Second

// Config holds configuration for the notification bus
type Config struct {
	// Backend selects the transport (default: "nats")
	Backend Backend `json:"backend" yaml:"backend"`

	// Host and Port locate the broker. They have no defaults; while either is
	// missing the bus keeps retrying and never reports connected.
	Host string `json:"host,omitempty" yaml:"host,omitempty"`
	Port int    `json:"port,omitempty" yaml:"port,omitempty"`

	// Username and Password authenticate against the broker. A password
	// without a username is sent as a NATS token or a Redis AUTH password.
	// Password has no default; while it is empty the bus never connects.
	Username string `json:"username,omitempty" yaml:"username,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// SubjectPrefix is prepended to every topic (default: "eventgraph")
	SubjectPrefix string `json:"subject_prefix,omitempty" yaml:"subject_prefix,omitempty"`

	// BufferSize is the per-subscriber queue length (default: 64)
	BufferSize int `json:"buffer_size,omitempty" yaml:"buffer_size,omitempty"`

	// ReconnectStepStr and ReconnectMaxStr shape the reconnect backoff
	// (defaults: "50ms" and "2s")
	ReconnectStepStr string `json:"reconnect_step,omitempty" yaml:"reconnect_step,omitempty"`
	ReconnectMaxStr  string `json:"reconnect_max,omitempty" yaml:"reconnect_max,omitempty"`

	// ConnectTimeoutStr bounds a single connection attempt and the drain on
	// close (default: "5s")
	ConnectTimeoutStr string `json:"connect_timeout,omitempty" yaml:"connect_timeout,omitempty"`

	// PingIntervalStr is how often the NATS server is pinged to check the link
	// (default: "10s")
	PingIntervalStr string `json:"ping_interval,omitempty" yaml:"ping_interval,omitempty"`

	policy         retry.Linear
	connectTimeout time.Duration
	pingInterval   time.Duration
}

// DefaultConfig returns a NATS configuration with no address.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendNATS,
		SubjectPrefix: "eventgraph",
		BufferSize:    64,
	}
}

// Validate fills defaults and rejects unusable values. A missing host, port
// or credential is not an error.
func (c *Config) Validate() error {
	switch c.Backend {
	case "":
		c.Backend = BackendNATS
	case BackendNATS, BackendRedis, BackendMemory:
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("unknown bus backend %q", c.Backend))
	}

	if c.Port < 0 || c.Port > 65535 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			fmt.Sprintf("port %d out of range", c.Port))
	}

	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "eventgraph"
	}

	if c.BufferSize == 0 {
		c.BufferSize = 64
	}
	if c.BufferSize < 1 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"buffer_size must be positive")
	}

	c.policy = retry.Reconnect()
	if c.ReconnectStepStr != "" {
		d, err := parsePositive(c.ReconnectStepStr, "reconnect_step")
		if err != nil {
			return err
		}
		c.policy.Step = d
	}
	if c.ReconnectMaxStr != "" {
		d, err := parsePositive(c.ReconnectMaxStr, "reconnect_max")
		if err != nil {
			return err
		}
		c.policy.Max = d
	}
	if c.policy.Max < c.policy.Step {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			"reconnect_max must not be below reconnect_step")
	}

	c.connectTimeout = 5 * time.Second
	if c.ConnectTimeoutStr != "" {
		d, err := parsePositive(c.ConnectTimeoutStr, "connect_timeout")
		if err != nil {
			return err
		}
		c.connectTimeout = d
	}

	c.pingInterval = defaultPingInterval
	if c.PingIntervalStr != "" {
		d, err := parsePositive(c.PingIntervalStr, "ping_interval")
		if err != nil {
			return err
		}
		c.pingInterval = d
	}

	return nil
}

func parsePositive(s, field string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.WrapInvalid(err, "Config", "Validate",
			fmt.Sprintf("invalid %s format: %s", field, s))
	}
	if d <= 0 {
		return 0, errors.WrapInvalid(errors.ErrInvalidConfig, "Config", "Validate",
			field+" must be positive")
	}
	return d, nil
}

// Policy returns the reconnect backoff. Valid after Validate.
func (c *Config) Policy() retry.Linear {
	if c.policy.Step == 0 {
		return retry.Reconnect()
	}
	return c.policy
}

// ConnectTimeout returns the single-attempt timeout. Valid after Validate.
func (c *Config) ConnectTimeout() time.Duration {
	if c.connectTimeout == 0 {
		return 5 * time.Second
	}
	return c.connectTimeout
}

// PingInterval returns the NATS liveness interval. Valid after Validate.
func (c *Config) PingInterval() time.Duration {
	if c.pingInterval == 0 {
		return defaultPingInterval
	}
	return c.pingInterval
}

// Address returns host:port and the names of any missing connection
// settings: host, port and credential.
func (c *Config) Address() (string, []string) {
	var missing []string
	if c.Host == "" {
		missing = append(missing, "host")
	}
	if c.Port == 0 {
		missing = append(missing, "port")
	}
	if c.Password == "" {
		missing = append(missing, "credential")
	}
	if len(missing) > 0 {
		return "", missing
	}
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), nil
}

// Subject maps a topic onto the broker subject or channel name.
func (c *Config) Subject(t Topic) string {
	if c.SubjectPrefix == "" {
		return string(t)
	}
	return c.SubjectPrefix + "." + string(t)
}
