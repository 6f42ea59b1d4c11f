package domain

import "errors"

var (
	// ErrUserRequired indicates an operation was called without a signed-in user.
	ErrUserRequired = errors.New("user id is required")

	// ErrNotConfigured indicates a backend has no usable credentials or URL.
	ErrNotConfigured = errors.New("backend not configured")

	// ErrStoreUnavailable indicates the subscription store could not be queried.
	// It is distinct from a missing record.
	ErrStoreUnavailable = errors.New("subscription store unavailable")

	// ErrSubscriptionNotFound indicates the user has no subscription record.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrInconsistentSubscription indicates a record that violates status invariants.
	ErrInconsistentSubscription = errors.New("inconsistent subscription record")

	// ErrUnknownPlan indicates a plan identifier missing from the catalog.
	ErrUnknownPlan = errors.New("unknown plan")

	// ErrInvalidPaymentMethod indicates the payment method is missing or unsupported.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrPaymentDeclined indicates the provider refused the charge.
	ErrPaymentDeclined = errors.New("payment declined")

	// ErrPaymentProviderUnavailable indicates the provider could not be reached.
	ErrPaymentProviderUnavailable = errors.New("payment provider unavailable")
)
