package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/resilience"
)

// BreakerRepository guards a remote SubscriptionRepository with a circuit
// breaker. Failures and rejections are reported as ErrStoreUnavailable so
// callers can tell them apart from a missing record.
type BreakerRepository struct {
	inner   domain.SubscriptionRepository
	breaker *resilience.Breaker
}

// NewBreakerRepository wraps inner. The breaker must ignore
// ErrSubscriptionNotFound; see StoreBreakerConfig.
func NewBreakerRepository(inner domain.SubscriptionRepository, breaker *resilience.Breaker) *BreakerRepository {
	return &BreakerRepository{inner: inner, breaker: breaker}
}

// StoreBreakerConfig returns breaker settings for the subscription store.
func StoreBreakerConfig(failures uint32, timeout time.Duration) resilience.BreakerConfig {
	cfg := resilience.DefaultBreakerConfig("subscription-store")
	if failures > 0 {
		cfg.FailureThreshold = failures
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	cfg.Ignore = func(err error) bool {
		return errors.Is(err, domain.ErrSubscriptionNotFound)
	}
	return cfg
}

func (r *BreakerRepository) do(op string, fn func() error) error {
	err := r.breaker.Do(fn)
	if err == nil || errors.Is(err, domain.ErrSubscriptionNotFound) || errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStoreUnavailable, op, err)
}

// FindByUserID implements domain.SubscriptionRepository.
func (r *BreakerRepository) FindByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	var sub *domain.Subscription
	err := r.do("find", func() error {
		var err error
		sub, err = r.inner.FindByUserID(ctx, userID)
		return err
	})
	return sub, err
}

// Upsert implements domain.SubscriptionRepository.
func (r *BreakerRepository) Upsert(ctx context.Context, subscription *domain.Subscription) error {
	return r.do("upsert", func() error {
		return r.inner.Upsert(ctx, subscription)
	})
}

// CreateIfAbsent implements domain.SubscriptionRepository.
func (r *BreakerRepository) CreateIfAbsent(ctx context.Context, subscription *domain.Subscription) (bool, error) {
	var created bool
	err := r.do("create", func() error {
		var err error
		created, err = r.inner.CreateIfAbsent(ctx, subscription)
		return err
	})
	return created, err
}

// ExpireTrial implements domain.SubscriptionRepository.
func (r *BreakerRepository) ExpireTrial(ctx context.Context, userID string, now time.Time) (bool, error) {
	var expired bool
	err := r.do("expire trial", func() error {
		var err error
		expired, err = r.inner.ExpireTrial(ctx, userID, now)
		return err
	})
	return expired, err
}

// UpdateStatus implements domain.SubscriptionRepository.
func (r *BreakerRepository) UpdateStatus(ctx context.Context, userID string, status domain.SubscriptionStatus, update domain.StatusUpdate) error {
	return r.do("update status", func() error {
		return r.inner.UpdateStatus(ctx, userID, status, update)
	})
}

// ListTrialsEndingBefore implements domain.SubscriptionRepository.
func (r *BreakerRepository) ListTrialsEndingBefore(ctx context.Context, t time.Time, limit int) ([]*domain.Subscription, error) {
	var subs []*domain.Subscription
	err := r.do("list trials", func() error {
		var err error
		subs, err = r.inner.ListTrialsEndingBefore(ctx, t, limit)
		return err
	})
	return subs, err
}

// State returns the breaker state name.
func (r *BreakerRepository) State() string {
	return r.breaker.State()
}

var _ domain.SubscriptionRepository = (*BreakerRepository)(nil)
