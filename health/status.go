package health

import (
	"regexp"
	"strings"
	"time"
)

// State is the coarse health level of a component.
type State string

const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

var (
	urlRegex         = regexp.MustCompile(`(?:https?|nats|redis|wss?)://[^\s]+`)
	unixPathRegex    = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	windowsPathRegex = regexp.MustCompile(`[A-Z]:\\[^:\s]+`)
	ipAddrRegex      = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex        = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex  = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status is the health report of one component, optionally composed of
// the reports of its parts.
type Status struct {
	Component  string    `json:"component"`
	Healthy    bool      `json:"healthy"`
	State      State     `json:"status"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	Components []Status  `json:"components,omitempty"`
	Metrics    *Metrics  `json:"metrics,omitempty"`
}

// Metrics carries activity counters alongside a status.
type Metrics struct {
	Uptime       string         `json:"uptime"`
	Requests     uint64         `json:"requests"`
	ErrorCount   uint64         `json:"error_count"`
	LastActivity time.Time      `json:"last_activity,omitempty"`
	Records      map[string]int `json:"records,omitempty"`
}

func newStatus(component string, state State, message string) Status {
	return Status{
		Component: component,
		Healthy:   state == StateHealthy,
		State:     state,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Healthy reports a component working normally.
func Healthy(component, message string) Status {
	return newStatus(component, StateHealthy, message)
}

// Degraded reports a component that still serves requests with reduced
// functionality.
func Degraded(component, message string) Status {
	return newStatus(component, StateDegraded, message)
}

// Unhealthy reports a component that cannot serve requests.
func Unhealthy(component, message string) Status {
	return newStatus(component, StateUnhealthy, message)
}

// FromError reports a component degraded by err. The message is sanitized
// so addresses and credentials never reach the health endpoint.
// A nil err yields a healthy status.
func FromError(component string, err error, healthyMessage string) Status {
	if err == nil {
		return Healthy(component, healthyMessage)
	}
	return Degraded(component, Sanitize(err.Error()))
}

// IsHealthy reports whether s is healthy.
func (s Status) IsHealthy() bool { return s.State == StateHealthy }

// IsDegraded reports whether s is degraded.
func (s Status) IsDegraded() bool { return s.State == StateDegraded }

// IsUnhealthy reports whether s is unhealthy.
func (s Status) IsUnhealthy() bool { return s.State == StateUnhealthy }

// WithMetrics returns a copy of s carrying m.
func (s Status) WithMetrics(m *Metrics) Status {
	s.Metrics = m
	return s
}

// Aggregate combines parts into one status for component. The worst part
// wins: any unhealthy part makes the whole unhealthy, otherwise any degraded
// part makes it degraded.
func Aggregate(component string, parts ...Status) Status {
	worst := StateHealthy
	for _, p := range parts {
		switch {
		case p.IsUnhealthy():
			worst = StateUnhealthy
		case p.IsDegraded() && worst == StateHealthy:
			worst = StateDegraded
		}
	}

	var message string
	switch worst {
	case StateUnhealthy:
		message = "one or more components are unhealthy"
	case StateDegraded:
		message = "one or more components are degraded"
	default:
		message = "all components are healthy"
	}

	s := newStatus(component, worst, message)
	if len(parts) > 0 {
		s.Components = make([]Status, len(parts))
		copy(s.Components, parts)
	}
	return s
}

// Sanitize strips URLs, file paths, addresses, ports and credentials from
// an error message.
func Sanitize(msg string) string {
	if msg == "" {
		return ""
	}

	// URLs before paths; a URL contains a path.
	out := urlRegex.ReplaceAllString(msg, "[URL]")
	out = unixPathRegex.ReplaceAllString(out, "[PATH]")
	out = windowsPathRegex.ReplaceAllString(out, "[PATH]")
	out = ipAddrRegex.ReplaceAllString(out, "[IP]")
	out = portRegex.ReplaceAllString(out, "[PORT]")

	lower := strings.ToLower(out)
	for _, word := range []string{"password", "token", "key", "secret", "credential"} {
		if strings.Contains(lower, word) {
			out = credentialRegex.ReplaceAllString(out, "[REDACTED]")
			break
		}
	}
	return out
}
