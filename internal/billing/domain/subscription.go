package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus represents the current billing state.
type SubscriptionStatus string

const (
	SubscriptionTrial     SubscriptionStatus = "trial"
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
	SubscriptionExpired   SubscriptionStatus = "expired"
)

// IsValid returns true if the status is one of the known states.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionTrial, SubscriptionActive, SubscriptionCancelled, SubscriptionExpired:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// Subscription represents a user's subscription record.
// There is exactly one record per UserID.
type Subscription struct {
	ID           uuid.UUID
	UserID       string
	PlanID       string
	Status       SubscriptionStatus
	TrialEndDate time.Time // set once at creation
	UpgradedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewTrialSubscription creates a trial record for a user first seen at now.
func NewTrialSubscription(userID string, plan Plan, now time.Time) *Subscription {
	now = now.UTC()
	return &Subscription{
		ID:           uuid.New(),
		UserID:       userID,
		PlanID:       plan.ID,
		Status:       SubscriptionTrial,
		TrialEndDate: now.Add(plan.TrialDuration()),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsUpgraded reports whether the user has completed a paid conversion.
func (s *Subscription) IsUpgraded() bool {
	return s != nil && s.UpgradedAt != nil
}

// IsConsistent reports whether the record satisfies the status invariants.
// An active record must carry an upgrade timestamp.
func (s *Subscription) IsConsistent() bool {
	if s == nil {
		return false
	}
	if s.Status == SubscriptionActive {
		return s.UpgradedAt != nil
	}
	return true
}

// TrialEndedAt reports whether the trial window has closed at the given time.
func (s *Subscription) TrialEndedAt(now time.Time) bool {
	return !now.Before(s.TrialEndDate)
}

// IsTrialActiveAt reports whether the record is a trial strictly before its end date.
func (s *Subscription) IsTrialActiveAt(now time.Time) bool {
	if s == nil || s.Status != SubscriptionTrial {
		return false
	}
	return now.Before(s.TrialEndDate)
}

// TrialDaysRemainingAt returns the whole days left in the trial, rounded up.
// Returns 0 if not in an active trial.
func (s *Subscription) TrialDaysRemainingAt(now time.Time) int {
	if !s.IsTrialActiveAt(now) {
		return 0
	}
	remaining := s.TrialEndDate.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Hours() / 24))
}

// Clone returns a deep copy of the subscription.
func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	c := *s
	if s.UpgradedAt != nil {
		t := *s.UpgradedAt
		c.UpgradedAt = &t
	}
	return &c
}
