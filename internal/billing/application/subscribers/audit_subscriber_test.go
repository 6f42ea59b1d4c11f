package subscribers_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/tutora/internal/billing/application"
	"github.com/felixgeelhaar/tutora/internal/billing/application/subscribers"
	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/internal/billing/infrastructure/payment"
	"github.com/felixgeelhaar/tutora/internal/billing/infrastructure/persistence"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/tutora/pkg/observability"
)

func TestAuditSubscriber_ReceivesEngineChanges(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewInMemoryMetrics()

	bus := eventbus.NewInProcessEventBus(nil)
	audit := subscribers.NewAuditSubscriber(10, metrics, nil)
	bus.RegisterConsumer(audit)

	engine := application.NewEngine(persistence.NewMemoryRepository(), payment.NewDemoGateway(0, nil), nil)
	engine.AddSubscriptionChangeListener(application.NewEventBridge(bus, metrics, nil).Publish)

	method := domain.PaymentMethod{Type: domain.PaymentMethodPayPal, Token: "BA-123"}
	require.True(t, engine.ConvertTrialToPaid(ctx, "u1", method).Success)
	require.NoError(t, engine.CancelSubscription(ctx, "u1"))

	recent := audit.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, application.ChangeUpgraded, recent[0].Kind)
	assert.Equal(t, application.ChangeCancelled, recent[1].Kind)
	assert.Equal(t, domain.SubscriptionActive, recent[1].From)
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricEventsConsumed, observability.T("kind", "cancelled")))
}

func TestAuditSubscriber_KeepsLastN(t *testing.T) {
	audit := subscribers.NewAuditSubscriber(2, nil, nil)

	for _, user := range []string{"a", "b", "c"} {
		env, err := eventbus.NewEnvelope(uuid.New(), domain.RoutingKeySubscriptionUpgraded, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), application.ChangeEvent{
			Kind:   application.ChangeUpgraded,
			UserID: user,
		}, eventbus.Metadata{UserID: user})
		require.NoError(t, err)
		require.NoError(t, audit.Handle(context.Background(), env))
	}

	recent := audit.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, "b", recent[0].UserID)
	assert.Equal(t, "c", recent[1].UserID)
}

func TestAuditSubscriber_DropsBadPayload(t *testing.T) {
	audit := subscribers.NewAuditSubscriber(5, nil, nil)

	err := audit.Handle(context.Background(), &eventbus.Envelope{
		RoutingKey: domain.RoutingKeySubscriptionCancelled,
		Payload:    []byte(`"not an object"`),
	})

	assert.NoError(t, err)
	assert.Empty(t, audit.Recent())
	assert.Equal(t, []string{"billing.subscription.*"}, audit.EventTypes())
}
