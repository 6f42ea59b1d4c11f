package observability

import (
	"context"
	"log/slog"
	"time"
)

// TimeOperationResult runs fn and records its duration and outcome.
func TimeOperationResult[R any](ctx context.Context, logger *slog.Logger, metrics Metrics, operation string, fn func() (R, error)) (R, error) {
	start := time.Now()
	result, err := fn()
	duration := time.Since(start)

	tags := []Tag{T("operation", operation)}
	if metrics != nil {
		metrics.Timing(MetricOperationDuration, duration, tags...)
		metrics.Counter(MetricOperationTotal, 1, tags...)
		if err != nil {
			metrics.Counter(MetricOperationErrors, 1, tags...)
		}
	}

	if logger != nil {
		if err != nil {
			logger.ErrorContext(ctx, "operation failed",
				OperationKey, operation,
				DurationKey, duration.Milliseconds(),
				Err(err),
			)
		} else {
			logger.DebugContext(ctx, "operation completed",
				OperationKey, operation,
				DurationKey, duration.Milliseconds(),
			)
		}
	}

	return result, err
}
