package health

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		state   State
		healthy bool
	}{
		{"healthy", Healthy("store", "ok"), StateHealthy, true},
		{"degraded", Degraded("bus", "disconnected"), StateDegraded, false},
		{"unhealthy", Unhealthy("server", "stopped"), StateUnhealthy, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.state, tt.status.State)
			assert.Equal(t, tt.healthy, tt.status.Healthy)
			assert.Equal(t, tt.healthy, tt.status.IsHealthy())
			assert.Equal(t, tt.state == StateDegraded, tt.status.IsDegraded())
			assert.Equal(t, tt.state == StateUnhealthy, tt.status.IsUnhealthy())
			assert.WithinDuration(t, time.Now(), tt.status.Timestamp, time.Second)
		})
	}
}

func TestFromError(t *testing.T) {
	s := FromError("bus", nil, "connected")
	assert.True(t, s.IsHealthy())
	assert.Equal(t, "connected", s.Message)

	s = FromError("bus", errors.New("dial nats://admin:pw@10.0.0.5:4222 refused"), "connected")
	assert.True(t, s.IsDegraded())
	assert.Equal(t, "dial [URL] refused", s.Message)
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name  string
		parts []Status
		want  State
	}{
		{"no parts", nil, StateHealthy},
		{"all healthy", []Status{Healthy("a", ""), Healthy("b", "")}, StateHealthy},
		{"one degraded", []Status{Healthy("a", ""), Degraded("b", "")}, StateDegraded},
		{"unhealthy wins", []Status{Degraded("a", ""), Unhealthy("b", ""), Healthy("c", "")}, StateUnhealthy},
		{"unhealthy before degraded", []Status{Unhealthy("a", ""), Degraded("b", "")}, StateUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Aggregate("eventgraph", tt.parts...)
			assert.Equal(t, "eventgraph", got.Component)
			assert.Equal(t, tt.want, got.State)
			assert.Len(t, got.Components, len(tt.parts))
		})
	}
}

func TestAggregate_CopiesParts(t *testing.T) {
	parts := []Status{Healthy("a", "")}
	got := Aggregate("x", parts...)
	parts[0].Message = "changed"
	assert.Empty(t, got.Components[0].Message)
}

func TestStatus_JSON(t *testing.T) {
	s := Aggregate("eventgraph", Degraded("bus", "down")).WithMetrics(&Metrics{
		Uptime:   "1s",
		Requests: 3,
		Records:  map[string]int{"User": 2},
	})

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "degraded", decoded["status"])
	assert.Equal(t, false, decoded["healthy"])
	assert.Len(t, decoded["components"], 1)
	metrics := decoded["metrics"].(map[string]any)
	assert.Equal(t, float64(3), metrics["requests"])
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"unix path", "failed to open /etc/eventgraph/config.yaml", "failed to open [PATH]"},
		{"windows path", "cannot read C:\\Users\\Admin\\config.json", "cannot read [PATH]"},
		{"http url", "get https://api.example.com/v1/health failed", "get [URL] failed"},
		{"nats url", "cannot connect to nats://localhost:4222", "cannot connect to [URL]"},
		{"redis url", "dial redis://cache:6379 timeout", "dial [URL] timeout"},
		{"ip address", "timeout connecting to 192.168.1.100", "timeout connecting to [IP]"},
		{"port", "failed to bind to :8080", "failed to bind to [PORT]"},
		{"credential", "auth failed password=hunter2", "auth failed [REDACTED]"},
		{"plain", "subscription failed", "subscription failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}
