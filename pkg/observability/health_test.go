package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthRegistry_Check(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	tests := []struct {
		name     string
		checkers map[string]HealthChecker
		expected HealthStatus
	}{
		{name: "empty", checkers: nil, expected: HealthStatusHealthy},
		{
			name: "all healthy",
			checkers: map[string]HealthChecker{
				"store": PingChecker("store", HealthStatusUnhealthy, ok),
				"redis": PingChecker("redis", HealthStatusDegraded, ok),
			},
			expected: HealthStatusHealthy,
		},
		{
			name: "fallback degraded",
			checkers: map[string]HealthChecker{
				"store": PingChecker("store", HealthStatusUnhealthy, ok),
				"redis": PingChecker("redis", HealthStatusDegraded, down),
			},
			expected: HealthStatusDegraded,
		},
		{
			name: "unhealthy wins",
			checkers: map[string]HealthChecker{
				"store":   PingChecker("store", HealthStatusUnhealthy, down),
				"redis":   PingChecker("redis", HealthStatusDegraded, down),
				"payment": StaticChecker(HealthStatusDegraded, "demo gateway"),
			},
			expected: HealthStatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewHealthRegistry()
			for name, c := range tt.checkers {
				reg.Register(name, c)
			}

			health := reg.Check(context.Background())
			assert.Equal(t, tt.expected, health.Status)
			assert.Len(t, health.Checks, len(tt.checkers))
		})
	}
}

func TestPingChecker_Message(t *testing.T) {
	res := PingChecker("store", HealthStatusUnhealthy, func(context.Context) error {
		return errors.New("timeout")
	})(context.Background())

	assert.Equal(t, HealthStatusUnhealthy, res.Status)
	assert.Equal(t, "store check failed: timeout", res.Message)
}
