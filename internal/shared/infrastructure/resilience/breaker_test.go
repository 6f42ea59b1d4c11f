package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stateLog struct {
	states []string
}

func (s *stateLog) RecordBreakerState(_, state string) {
	s.states = append(s.states, state)
}

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	rec := &stateLog{}
	cfg := DefaultBreakerConfig("store")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour
	b := NewBreaker(cfg, nil, rec)

	boom := errors.New("boom")
	assert.ErrorIs(t, b.Do(func() error { return boom }), boom)
	assert.ErrorIs(t, b.Do(func() error { return boom }), boom)

	called := false
	err := b.Do(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.Equal(t, "open", b.State())
	assert.Equal(t, []string{"open"}, rec.states)
}

func TestBreaker_IgnoredErrorsDoNotTrip(t *testing.T) {
	notFound := errors.New("not found")
	cfg := DefaultBreakerConfig("store")
	cfg.FailureThreshold = 1
	cfg.Ignore = func(err error) bool { return errors.Is(err, notFound) }
	b := NewBreaker(cfg, nil, nil)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(func() error { return notFound }), notFound)
	}
	assert.Equal(t, "closed", b.State())
	assert.Equal(t, "store", b.Name())
}
