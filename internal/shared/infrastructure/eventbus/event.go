// Package eventbus carries subscription change events to consumers, either
// through RabbitMQ or synchronously in process.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire format of every published event.
type Envelope struct {
	EventID    uuid.UUID       `json:"event_id"`
	RoutingKey string          `json:"routing_key"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
	Metadata   Metadata        `json:"metadata,omitempty"`
}

// Metadata contains optional metadata about the event.
type Metadata struct {
	UserID        string `json:"user_id,omitempty"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// NewEnvelope marshals payload into an envelope.
func NewEnvelope(eventID uuid.UUID, routingKey string, occurredAt time.Time, payload any, meta Metadata) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}
	return &Envelope{
		EventID:    eventID,
		RoutingKey: routingKey,
		OccurredAt: occurredAt,
		Payload:    raw,
		Metadata:   meta,
	}, nil
}

// EventConsumer handles events matching its routing key patterns.
type EventConsumer interface {
	// EventTypes returns routing keys or topic patterns, e.g.
	// "billing.subscription.*".
	EventTypes() []string

	// Handle processes the event.
	Handle(ctx context.Context, event *Envelope) error
}

// Publisher sends encoded envelopes to a broker.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// PublishEnvelope encodes env and publishes it under its routing key.
func PublishEnvelope(ctx context.Context, p Publisher, env *Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}
	return p.Publish(ctx, env.RoutingKey, body)
}
