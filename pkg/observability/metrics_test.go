package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryMetrics_Counter(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Counter(MetricSubscriptionTransitions, 1, T("to", "active"))
	m.Counter(MetricSubscriptionTransitions, 1, T("to", "active"))
	m.Counter(MetricSubscriptionTransitions, 1, T("to", "cancelled"))

	assert.Equal(t, int64(2), m.GetCounter(MetricSubscriptionTransitions, T("to", "active")))
	assert.Equal(t, int64(1), m.GetCounter(MetricSubscriptionTransitions, T("to", "cancelled")))
	assert.Equal(t, int64(0), m.GetCounter(MetricSubscriptionTransitions))
}

func TestInMemoryMetrics_TagOrderIrrelevant(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Counter("x", 1, T("b", "2"), T("a", "1"))
	assert.Equal(t, int64(1), m.GetCounter("x", T("a", "1"), T("b", "2")))
	assert.Equal(t, map[string]int64{"x:a=1:b=2": 1}, m.Snapshot())
}

func TestInMemoryMetrics_GaugeAndTiming(t *testing.T) {
	m := NewInMemoryMetrics()

	m.Gauge("g", 1)
	m.Gauge("g", 3)
	m.Timing("t", time.Second)
	m.Timing("t", 2*time.Second)

	assert.Equal(t, 3.0, m.GetGauge("g"))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, m.GetTimings("t"))
}

func TestBreakerStateRecorder(t *testing.T) {
	m := NewInMemoryMetrics()
	rec := BreakerStateRecorder{Metrics: m}

	rec.RecordBreakerState("paypal", "open")
	assert.Equal(t, 2.0, m.GetGauge(MetricBreakerState, T("breaker", "paypal")))

	rec.RecordBreakerState("paypal", "closed")
	assert.Equal(t, 0.0, m.GetGauge(MetricBreakerState, T("breaker", "paypal")))

	BreakerStateRecorder{}.RecordBreakerState("noop", "open")
	NoopMetrics{}.Counter("x", 1)
}

func TestTimeOperationResult(t *testing.T) {
	m := NewInMemoryMetrics()

	v, err := TimeOperationResult(context.Background(), nil, m, "status", func() (int, error) {
		return 7, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	boom := errors.New("boom")
	_, err = TimeOperationResult(context.Background(), nil, m, "status", func() (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, int64(2), m.GetCounter(MetricOperationTotal, T("operation", "status")))
	assert.Equal(t, int64(1), m.GetCounter(MetricOperationErrors, T("operation", "status")))
	assert.Len(t, m.GetTimings(MetricOperationDuration, T("operation", "status")), 2)
}
