// Package subscribers holds event bus consumers for billing events.
package subscribers

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/felixgeelhaar/tutora/internal/billing/application"
	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/tutora/pkg/observability"
)

// AuditSubscriber writes every subscription change to the log.
type AuditSubscriber struct {
	metrics observability.Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	recent []application.ChangeEvent
	keep   int
}

// NewAuditSubscriber creates an audit subscriber that remembers the last
// keep events.
func NewAuditSubscriber(keep int, metrics observability.Metrics, logger *slog.Logger) *AuditSubscriber {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditSubscriber{metrics: metrics, logger: logger, keep: keep}
}

// EventTypes returns the event types this subscriber handles.
func (s *AuditSubscriber) EventTypes() []string {
	return []string{domain.RoutingKeySubscriptionAll}
}

// Handle logs the change. Undecodable payloads are dropped.
func (s *AuditSubscriber) Handle(ctx context.Context, event *eventbus.Envelope) error {
	var change application.ChangeEvent
	if err := json.Unmarshal(event.Payload, &change); err != nil {
		s.logger.ErrorContext(ctx, "failed to unmarshal subscription change",
			"routing_key", event.RoutingKey,
			"event_id", event.EventID,
			"error", err,
		)
		return nil
	}

	s.logger.InfoContext(ctx, "subscription changed",
		"event_id", event.EventID,
		"kind", change.Kind,
		"user_id", change.UserID,
		"plan_id", change.PlanID,
		"from", change.From,
		"to", change.To,
		"occurred_at", change.OccurredAt,
		"correlation_id", event.Metadata.CorrelationID,
	)
	s.metrics.Counter(observability.MetricEventsConsumed, 1, observability.T("kind", string(change.Kind)))

	if s.keep > 0 {
		s.mu.Lock()
		s.recent = append(s.recent, change)
		if len(s.recent) > s.keep {
			s.recent = s.recent[len(s.recent)-s.keep:]
		}
		s.mu.Unlock()
	}
	return nil
}

// Recent returns the remembered events, oldest first.
func (s *AuditSubscriber) Recent() []application.ChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]application.ChangeEvent, len(s.recent))
	copy(out, s.recent)
	return out
}
