package domain

// Routing keys for subscription change events.
const (
	RoutingKeySubscriptionUpgraded  = "billing.subscription.upgraded"
	RoutingKeySubscriptionCancelled = "billing.subscription.cancelled"

	// RoutingKeySubscriptionAll matches every subscription change.
	RoutingKeySubscriptionAll = "billing.subscription.*"
)
