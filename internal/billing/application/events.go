package application

import (
	"context"
	"log/slog"

	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/tutora/pkg/observability"
)

// EventBridge forwards change events to an event bus publisher.
type EventBridge struct {
	publisher eventbus.Publisher
	metrics   observability.Metrics
	logger    *slog.Logger
}

// NewEventBridge creates a bridge to publisher.
func NewEventBridge(publisher eventbus.Publisher, metrics observability.Metrics, logger *slog.Logger) *EventBridge {
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBridge{publisher: publisher, metrics: metrics, logger: logger}
}

// Attach subscribes the bridge to the notifier.
func (b *EventBridge) Attach(n *Notifier) ListenerID {
	return n.Subscribe(b.Publish)
}

// Publish sends event to the bus. Failures are logged only.
func (b *EventBridge) Publish(ctx context.Context, event ChangeEvent) {
	routingKey := event.Kind.RoutingKey()

	env, err := eventbus.NewEnvelope(event.ID, routingKey, event.OccurredAt, event, eventbus.Metadata{
		UserID:        event.UserID,
		CorrelationID: observability.CorrelationIDFromContext(ctx),
	})
	if err == nil {
		err = eventbus.PublishEnvelope(ctx, b.publisher, env)
	}
	if err != nil {
		b.metrics.Counter(observability.MetricEventsPublished, 1, observability.T("result", "error"))
		b.logger.ErrorContext(ctx, "failed to publish subscription change",
			"routing_key", routingKey,
			"user_id", event.UserID,
			observability.Err(err),
		)
		return
	}
	b.metrics.Counter(observability.MetricEventsPublished, 1, observability.T("result", "ok"))
}
