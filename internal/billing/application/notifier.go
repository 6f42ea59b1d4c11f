package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/google/uuid"
)

// ChangeKind names a committed subscription transition.
type ChangeKind string

const (
	ChangeUpgraded  ChangeKind = "upgraded"
	ChangeCancelled ChangeKind = "cancelled"
)

// RoutingKey returns the event bus routing key for the kind.
func (k ChangeKind) RoutingKey() string {
	switch k {
	case ChangeUpgraded:
		return domain.RoutingKeySubscriptionUpgraded
	case ChangeCancelled:
		return domain.RoutingKeySubscriptionCancelled
	default:
		return "billing.subscription." + string(k)
	}
}

// ChangeEvent describes a transition after it was persisted.
// Listeners should re-read status rather than trust From/To.
type ChangeEvent struct {
	ID         uuid.UUID                 `json:"id"`
	Kind       ChangeKind                `json:"kind"`
	UserID     string                    `json:"user_id"`
	PlanID     string                    `json:"plan_id"`
	From       domain.SubscriptionStatus `json:"from,omitempty"`
	To         domain.SubscriptionStatus `json:"to"`
	OccurredAt time.Time                 `json:"occurred_at"`
}

// Listener receives change events synchronously.
type Listener func(ctx context.Context, event ChangeEvent)

// ListenerID identifies a subscription for removal.
type ListenerID uint64

type registeredListener struct {
	id ListenerID
	fn Listener
}

// Notifier fans change events out to listeners in registration order.
type Notifier struct {
	mu        sync.RWMutex
	nextID    ListenerID
	listeners []registeredListener
	logger    *slog.Logger
}

// NewNotifier creates an empty notifier.
func NewNotifier(logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{logger: logger}
}

// Subscribe registers fn and returns its handle.
func (n *Notifier) Subscribe(fn Listener) ListenerID {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.nextID++
	n.listeners = append(n.listeners, registeredListener{id: n.nextID, fn: fn})
	return n.nextID
}

// Unsubscribe removes the listener. Returns false for an unknown handle.
func (n *Notifier) Unsubscribe(id ListenerID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	for i, l := range n.listeners {
		if l.id == id {
			n.listeners = append(n.listeners[:i:i], n.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered listeners.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.listeners)
}

// Notify calls every listener once. A panicking listener is logged and
// the rest still run.
func (n *Notifier) Notify(ctx context.Context, event ChangeEvent) {
	n.mu.RLock()
	listeners := make([]registeredListener, len(n.listeners))
	copy(listeners, n.listeners)
	n.mu.RUnlock()

	for _, l := range listeners {
		n.call(ctx, l, event)
	}
}

func (n *Notifier) call(ctx context.Context, l registeredListener, event ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.ErrorContext(ctx, "subscription change listener panicked",
				"listener_id", l.id,
				"kind", event.Kind,
				"user_id", event.UserID,
				"panic", r,
			)
		}
	}()
	l.fn(ctx, event)
}
