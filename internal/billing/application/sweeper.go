package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/tutora/pkg/observability"
)

// SweeperConfig configures the trial-expiry sweeper.
type SweeperConfig struct {
	Interval  time.Duration
	BatchSize int
}

// DefaultSweeperConfig returns an hourly sweep of 100 records.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{Interval: time.Hour, BatchSize: 100}
}

// Sweeper expires lapsed trials in the background so the store reflects
// reality for users who never come back.
type Sweeper struct {
	engine  *Engine
	config  SweeperConfig
	metrics observability.Metrics
	logger  *slog.Logger
}

// NewSweeper creates a sweeper over the engine's store.
func NewSweeper(engine *Engine, config SweeperConfig, metrics observability.Metrics, logger *slog.Logger) *Sweeper {
	defaults := DefaultSweeperConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{engine: engine, config: config, metrics: metrics, logger: logger}
}

// RunOnce passes one batch of lapsed trials through the status check and
// returns how many expiries it wrote. A trial upgraded in the meantime, or
// one whose write failed, is not counted.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	trials, err := s.engine.repo.ListTrialsEndingBefore(ctx, s.engine.now().UTC(), s.config.BatchSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, sub := range trials {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		_, persisted, err := s.engine.checkStatus(ctx, sub.UserID)
		if err != nil {
			s.logger.WarnContext(ctx, "sweeper could not check trial",
				"user_id", sub.UserID,
				observability.Err(err),
			)
			continue
		}
		if persisted {
			expired++
		}
	}

	s.metrics.Counter(observability.MetricTrialsSwept, int64(expired))
	if len(trials) > 0 {
		s.logger.InfoContext(ctx, "trial sweep complete",
			"candidates", len(trials),
			"expired", expired,
		)
	}
	return expired, nil
}

// Run sweeps immediately and then every Interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.logger.InfoContext(ctx, "trial sweeper started",
		"interval", s.config.Interval,
		"batch_size", s.config.BatchSize,
	)

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "trial sweep failed", observability.Err(err))
		}

		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "trial sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}
