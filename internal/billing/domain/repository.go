package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StatusUpdate carries optional fields written alongside a status change.
type StatusUpdate struct {
	UpgradedAt *time.Time
}

// SubscriptionRepository defines access for subscription persistence.
// Implementations are pure CRUD and carry no business rules.
type SubscriptionRepository interface {
	// FindByUserID returns the user's subscription.
	// Returns nil, nil if the user has no record.
	FindByUserID(ctx context.Context, userID string) (*Subscription, error)

	// Upsert inserts or updates the record keyed by user ID.
	// TrialEndDate and CreatedAt of an existing record are preserved.
	Upsert(ctx context.Context, subscription *Subscription) error

	// CreateIfAbsent inserts the record unless the user already has one.
	// Reports whether it inserted.
	CreateIfAbsent(ctx context.Context, subscription *Subscription) (bool, error)

	// ExpireTrial marks the user's record expired only while it is still a
	// trial whose window closed at or before now. Reports whether it changed.
	ExpireTrial(ctx context.Context, userID string, now time.Time) (bool, error)

	// UpdateStatus overwrites the status of an existing record.
	// Returns ErrSubscriptionNotFound if the user has no record.
	UpdateStatus(ctx context.Context, userID string, status SubscriptionStatus, update StatusUpdate) error

	// ListTrialsEndingBefore returns trial records whose window closed before t.
	ListTrialsEndingBefore(ctx context.Context, t time.Time, limit int) ([]*Subscription, error)
}

// UsageCounter counts assignment creations per user and period.
type UsageCounter interface {
	// Increment adds one to the counter and returns the new value.
	Increment(ctx context.Context, userID, period string) (int64, error)

	// Get returns the current counter value, 0 if never incremented.
	Get(ctx context.Context, userID, period string) (int64, error)
}

// PaymentRecord is a ledger row for a completed charge.
type PaymentRecord struct {
	TransactionID string
	UserID        string
	PlanID        string
	Amount        decimal.Decimal
	Currency      string
	Demo          bool
	CreatedAt     time.Time
}

// PaymentLedger stores completed charges for audit.
type PaymentLedger interface {
	Record(ctx context.Context, record PaymentRecord) error
	ListByUser(ctx context.Context, userID string) ([]PaymentRecord, error)
}
