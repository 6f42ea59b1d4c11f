package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/pkg/observability"
)

// UsageService counts assignment creations per calendar month.
type UsageService struct {
	engine  *Engine
	counter domain.UsageCounter
	metrics observability.Metrics
	logger  *slog.Logger
}

// NewUsageService creates a usage service sharing the engine's clock and catalog.
func NewUsageService(engine *Engine, counter domain.UsageCounter, metrics observability.Metrics, logger *slog.Logger) *UsageService {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UsageService{engine: engine, counter: counter, metrics: metrics, logger: logger}
}

// Increment adds one assignment to the current period and returns the new count.
func (s *UsageService) Increment(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, domain.ErrUserRequired
	}
	period := domain.UsagePeriod(s.engine.now())
	n, err := s.counter.Increment(ctx, userID, period)
	if err != nil {
		return 0, fmt.Errorf("increment usage: %w", err)
	}
	s.metrics.Counter(observability.MetricUsageIncrements, 1)
	return n, nil
}

// GetUsage reports the current period's count against the user's limit.
// Entitled users get their plan's limit; everyone else gets the free tier's.
func (s *UsageService) GetUsage(ctx context.Context, userID string) (domain.Usage, error) {
	if userID == "" {
		return domain.Usage{}, domain.ErrUserRequired
	}

	view, err := s.engine.CheckSubscriptionStatus(ctx, userID)
	if err != nil {
		return domain.Usage{}, fmt.Errorf("get usage: %w", err)
	}

	period := domain.UsagePeriod(s.engine.now())
	used, err := s.counter.Get(ctx, userID, period)
	if err != nil {
		return domain.Usage{}, fmt.Errorf("get usage: %w", err)
	}

	return domain.NewUsage(userID, period, used, s.limitFor(view)), nil
}

func (s *UsageService) limitFor(view *StatusView) int {
	catalog := s.engine.Catalog()
	if view.Entitled {
		if plan, ok := catalog.Lookup(view.PlanID); ok {
			return plan.AssignmentLimit
		}
	}
	return catalog.Free().AssignmentLimit
}

// RecordAssignmentCreated checks the user may create an assignment and, if
// so, counts it. Counter failures are logged; the creation stays allowed.
func (s *UsageService) RecordAssignmentCreated(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, domain.ErrUserRequired
	}
	if !s.engine.CanCreateAssignment(ctx, userID) {
		return false, nil
	}
	if _, err := s.Increment(ctx, userID); err != nil {
		s.logger.WarnContext(ctx, "assignment allowed but not counted",
			"user_id", userID,
			observability.Err(err),
		)
	}
	return true, nil
}
