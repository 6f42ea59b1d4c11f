package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotifier_OrderAndRemoval(t *testing.T) {
	n := NewNotifier(nil)
	var calls []string

	n.Subscribe(func(context.Context, ChangeEvent) { calls = append(calls, "a") })
	b := n.Subscribe(func(context.Context, ChangeEvent) { calls = append(calls, "b") })
	n.Subscribe(func(context.Context, ChangeEvent) { calls = append(calls, "c") })
	assert.Equal(t, 3, n.Len())

	n.Notify(context.Background(), ChangeEvent{Kind: ChangeUpgraded})
	assert.Equal(t, []string{"a", "b", "c"}, calls)

	assert.True(t, n.Unsubscribe(b))
	calls = nil
	n.Notify(context.Background(), ChangeEvent{Kind: ChangeCancelled})
	assert.Equal(t, []string{"a", "c"}, calls)
	assert.Equal(t, 2, n.Len())
}

func TestNotifier_PanickingListenerIsContained(t *testing.T) {
	n := NewNotifier(nil)
	var after bool

	n.Subscribe(func(context.Context, ChangeEvent) { panic("listener bug") })
	n.Subscribe(func(context.Context, ChangeEvent) { after = true })

	assert.NotPanics(t, func() {
		n.Notify(context.Background(), ChangeEvent{Kind: ChangeUpgraded, UserID: "u1"})
	})
	assert.True(t, after)
}

func TestNotifier_ListenerMayUnsubscribeItself(t *testing.T) {
	n := NewNotifier(nil)
	var id ListenerID
	var count int
	id = n.Subscribe(func(context.Context, ChangeEvent) {
		count++
		n.Unsubscribe(id)
	})

	n.Notify(context.Background(), ChangeEvent{})
	n.Notify(context.Background(), ChangeEvent{})
	assert.Equal(t, 1, count)
	assert.Zero(t, n.Len())
}

func TestChangeKind_RoutingKey(t *testing.T) {
	assert.Equal(t, "billing.subscription.upgraded", ChangeUpgraded.RoutingKey())
	assert.Equal(t, "billing.subscription.cancelled", ChangeCancelled.RoutingKey())
	assert.Equal(t, "billing.subscription.paused", ChangeKind("paused").RoutingKey())
}
