package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/tutora/pkg/observability"
)

func TestSweeper_RunOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sweeper := NewSweeper(f.engine, SweeperConfig{BatchSize: 10}, f.metrics, nil)

	for _, user := range []string{"u1", "u2"} {
		_, err := f.engine.CheckSubscriptionStatus(ctx, user)
		require.NoError(t, err)
	}
	f.clock.Advance(10 * day)
	_, err := f.engine.CheckSubscriptionStatus(ctx, "u3")
	require.NoError(t, err)
	f.clock.Advance(5 * day)

	expired, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)
	assert.Equal(t, int32(2), f.repo.expiries.Load())

	expired, err = sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
	assert.Equal(t, int64(2), f.metrics.GetCounter(observability.MetricTrialsSwept))

	assert.True(t, f.engine.CanCreateAssignment(ctx, "u3"))
}

func TestSweeper_RespectsBatchSize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sweeper := NewSweeper(f.engine, SweeperConfig{BatchSize: 1}, nil, nil)

	for _, user := range []string{"u1", "u2", "u3"} {
		_, err := f.engine.CheckSubscriptionStatus(ctx, user)
		require.NoError(t, err)
	}
	f.clock.Advance(20 * day)

	for want := 1; want <= 3; want++ {
		n, err := sweeper.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, int32(want), f.repo.expiries.Load())
	}
}

func TestSweeper_CountsOnlyPersistedExpiries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sweeper := NewSweeper(f.engine, SweeperConfig{BatchSize: 10}, f.metrics, nil)

	for _, user := range []string{"u1", "u2"} {
		_, err := f.engine.CheckSubscriptionStatus(ctx, user)
		require.NoError(t, err)
	}
	f.clock.Advance(15 * day)
	f.repo.failExpiries = true

	expired, err := sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
	assert.Zero(t, f.metrics.GetCounter(observability.MetricTrialsSwept))
	assert.Equal(t, int32(2), f.repo.expiries.Load())

	f.repo.failExpiries = false
	expired, err = sweeper.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, expired)
	assert.Equal(t, int64(2), f.metrics.GetCounter(observability.MetricTrialsSwept))
}

func TestSweeper_StoreFailure(t *testing.T) {
	engine := NewEngine(unreachableRepo{}, nil, nil)
	sweeper := NewSweeper(engine, SweeperConfig{}, nil, nil)

	_, err := sweeper.RunOnce(context.Background())
	assert.ErrorIs(t, err, errUnreachable)
	assert.Equal(t, DefaultSweeperConfig(), sweeper.config)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	sweeper := NewSweeper(f.engine, SweeperConfig{Interval: time.Millisecond}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
