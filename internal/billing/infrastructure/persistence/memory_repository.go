package persistence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
)

// MemoryRepository keeps subscriptions in process memory. It is the
// fallback store when no database is configured and is lost on restart.
type MemoryRepository struct {
	mu   sync.RWMutex
	subs map[string]*domain.Subscription
	now  func() time.Time
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		subs: make(map[string]*domain.Subscription),
		now:  time.Now,
	}
}

// FindByUserID returns a copy of the user's subscription, or nil.
func (r *MemoryRepository) FindByUserID(_ context.Context, userID string) (*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subs[userID].Clone(), nil
}

// Upsert stores a copy of the subscription, keeping the trial end date
// and creation time of an existing record.
func (r *MemoryRepository) Upsert(_ context.Context, subscription *domain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := subscription.Clone()
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = r.now().UTC()
	}
	if existing, ok := r.subs[next.UserID]; ok {
		next.ID = existing.ID
		next.TrialEndDate = existing.TrialEndDate
		next.CreatedAt = existing.CreatedAt
	} else if next.CreatedAt.IsZero() {
		next.CreatedAt = next.UpdatedAt
	}

	r.subs[next.UserID] = next
	return nil
}

// CreateIfAbsent stores a copy of the subscription unless the user has one.
func (r *MemoryRepository) CreateIfAbsent(_ context.Context, subscription *domain.Subscription) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[subscription.UserID]; ok {
		return false, nil
	}
	next := subscription.Clone()
	if next.UpdatedAt.IsZero() {
		next.UpdatedAt = r.now().UTC()
	}
	if next.CreatedAt.IsZero() {
		next.CreatedAt = next.UpdatedAt
	}
	r.subs[next.UserID] = next
	return true, nil
}

// ExpireTrial moves a lapsed trial to expired and leaves any other record alone.
func (r *MemoryRepository) ExpireTrial(_ context.Context, userID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[userID]
	if !ok || sub.Status != domain.SubscriptionTrial || sub.TrialEndDate.After(now) {
		return false, nil
	}
	sub.Status = domain.SubscriptionExpired
	sub.UpdatedAt = r.now().UTC()
	return true, nil
}

// UpdateStatus changes the status of an existing record.
func (r *MemoryRepository) UpdateStatus(_ context.Context, userID string, status domain.SubscriptionStatus, update domain.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[userID]
	if !ok {
		return domain.ErrSubscriptionNotFound
	}

	sub.Status = status
	if update.UpgradedAt != nil {
		upgradedAt := update.UpgradedAt.UTC()
		sub.UpgradedAt = &upgradedAt
	}
	sub.UpdatedAt = r.now().UTC()
	return nil
}

// ListTrialsEndingBefore returns trials whose end date is at or before t,
// oldest first.
func (r *MemoryRepository) ListTrialsEndingBefore(_ context.Context, t time.Time, limit int) ([]*domain.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Subscription
	for _, sub := range r.subs {
		if sub.Status == domain.SubscriptionTrial && !sub.TrialEndDate.After(t) {
			out = append(out, sub.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TrialEndDate.Before(out[j].TrialEndDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of stored subscriptions.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

var _ domain.SubscriptionRepository = (*MemoryRepository)(nil)

// MemoryLedger keeps payment records in process memory.
type MemoryLedger struct {
	mu      sync.RWMutex
	records []domain.PaymentRecord
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

// Record appends a payment record.
func (l *MemoryLedger) Record(_ context.Context, record domain.PaymentRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

// ListByUser returns the user's payment records in insertion order.
func (l *MemoryLedger) ListByUser(_ context.Context, userID string) ([]domain.PaymentRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.PaymentRecord
	for _, rec := range l.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

var _ domain.PaymentLedger = (*MemoryLedger)(nil)
