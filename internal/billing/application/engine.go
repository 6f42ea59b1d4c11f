// Package application holds the subscription state machine and the services
// built on it.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/pkg/observability"
	"github.com/google/uuid"
)

// StatusView is the derived subscription state returned to callers.
type StatusView struct {
	UserID                string                    `json:"user_id"`
	PlanID                string                    `json:"plan_id"`
	Status                domain.SubscriptionStatus `json:"status"`
	TrialEndDate          time.Time                 `json:"trial_end_date"`
	UpgradedAt            *time.Time                `json:"upgraded_at,omitempty"`
	IsTrialActive         bool                      `json:"is_trial_active"`
	RequiresPaymentMethod bool                      `json:"requires_payment_method"`
	TrialDaysRemaining    int                       `json:"trial_days_remaining"`
	Entitled              bool                      `json:"entitled"`
}

// UpgradeResult is the outcome of ConvertTrialToPaid.
type UpgradeResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id,omitempty"`
	Demo          bool   `json:"demo,omitempty"`
}

// Engine decides each user's subscription state and what it entitles them to.
// Safe for concurrent use.
type Engine struct {
	repo     domain.SubscriptionRepository
	gateway  domain.PaymentGateway
	catalog  *domain.Catalog
	notifier *Notifier
	ledger   domain.PaymentLedger
	metrics  observability.Metrics
	logger   *slog.Logger
	now      func() time.Time
	upgrades userLocks
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) { e.now = now }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m observability.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// WithLedger records completed charges.
func WithLedger(l domain.PaymentLedger) EngineOption {
	return func(e *Engine) { e.ledger = l }
}

// WithNotifier shares a notifier with other components.
func WithNotifier(n *Notifier) EngineOption {
	return func(e *Engine) { e.notifier = n }
}

// NewEngine creates an engine. A nil catalog means DefaultCatalog.
func NewEngine(repo domain.SubscriptionRepository, gateway domain.PaymentGateway, catalog *domain.Catalog, opts ...EngineOption) *Engine {
	if catalog == nil {
		catalog = domain.DefaultCatalog()
	}
	e := &Engine{
		repo:    repo,
		gateway: gateway,
		catalog: catalog,
		metrics: observability.NoopMetrics{},
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.notifier == nil {
		e.notifier = NewNotifier(e.logger)
	}
	return e
}

// Catalog returns the plan catalog.
func (e *Engine) Catalog() *domain.Catalog {
	return e.catalog
}

// CheckSubscriptionStatus returns the user's current state, creating a trial
// for unknown users and expiring trials whose window has closed.
func (e *Engine) CheckSubscriptionStatus(ctx context.Context, userID string) (*StatusView, error) {
	if userID == "" {
		return nil, domain.ErrUserRequired
	}
	return observability.TimeOperationResult(ctx, e.logger, e.metrics, "check_subscription_status", func() (*StatusView, error) {
		view, _, err := e.checkStatus(ctx, userID)
		return view, err
	})
}

func (e *Engine) find(ctx context.Context, userID string) (*domain.Subscription, error) {
	sub, err := e.repo.FindByUserID(ctx, userID)
	if err != nil {
		e.metrics.Counter(observability.MetricStoreErrors, 1, observability.T("op", "find"))
		return nil, fmt.Errorf("check subscription status: %w", err)
	}
	return sub, nil
}

// checkStatus also reports whether this call persisted a trial expiry.
// Writes are conditional: a concurrent upgrade is never overwritten.
func (e *Engine) checkStatus(ctx context.Context, userID string) (*StatusView, bool, error) {
	sub, err := e.find(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	now := e.now().UTC()

	if sub == nil {
		trial := domain.NewTrialSubscription(userID, e.catalog.Default(), now)
		created, err := e.repo.CreateIfAbsent(ctx, trial)
		switch {
		case err != nil:
			e.metrics.Counter(observability.MetricStoreErrors, 1, observability.T("op", "create"))
			e.logger.WarnContext(ctx, "failed to persist new trial",
				"user_id", userID,
				observability.Err(err),
			)
			return e.view(ctx, trial, now), false, nil
		case created:
			e.metrics.Counter(observability.MetricSubscriptionTransitions, 1, observability.T("to", string(domain.SubscriptionTrial)))
			e.logger.InfoContext(ctx, "trial started",
				"user_id", userID,
				"trial_end_date", trial.TrialEndDate,
			)
			return e.view(ctx, trial, now), false, nil
		}

		// Someone else wrote the record first.
		if sub, err = e.find(ctx, userID); err != nil {
			return nil, false, err
		}
		if sub == nil {
			return e.view(ctx, trial, now), false, nil
		}
	}

	if sub.Status == domain.SubscriptionTrial && sub.TrialEndedAt(now) {
		expired, err := e.repo.ExpireTrial(ctx, userID, now)
		switch {
		case err != nil:
			e.metrics.Counter(observability.MetricStoreErrors, 1, observability.T("op", "expire_trial"))
			e.logger.WarnContext(ctx, "failed to persist trial expiry",
				"user_id", userID,
				observability.Err(err),
			)
			sub.Status = domain.SubscriptionExpired
			return e.view(ctx, sub, now), false, nil
		case expired:
			e.metrics.Counter(observability.MetricSubscriptionTransitions, 1, observability.T("to", string(domain.SubscriptionExpired)))
			e.logger.InfoContext(ctx, "trial expired", "user_id", userID)
			sub.Status = domain.SubscriptionExpired
			return e.view(ctx, sub, now), true, nil
		}

		// The record moved on since it was read.
		current, err := e.find(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		if current != nil {
			sub = current
		}
		if sub.Status == domain.SubscriptionTrial && sub.TrialEndedAt(now) {
			sub.Status = domain.SubscriptionExpired
		}
	}

	return e.view(ctx, sub, now), false, nil
}

func (e *Engine) view(ctx context.Context, sub *domain.Subscription, now time.Time) *StatusView {
	v := &StatusView{
		UserID:             sub.UserID,
		PlanID:             sub.PlanID,
		Status:             sub.Status,
		TrialEndDate:       sub.TrialEndDate,
		UpgradedAt:         sub.UpgradedAt,
		IsTrialActive:      sub.IsTrialActiveAt(now),
		TrialDaysRemaining: sub.TrialDaysRemainingAt(now),
	}

	switch sub.Status {
	case domain.SubscriptionActive:
		v.RequiresPaymentMethod = true
		if sub.IsConsistent() {
			v.Entitled = true
		} else {
			e.logger.WarnContext(ctx, "denying access to inconsistent subscription",
				"user_id", sub.UserID,
				"status", sub.Status,
				observability.Err(domain.ErrInconsistentSubscription),
			)
		}
	case domain.SubscriptionTrial:
		v.Entitled = v.IsTrialActive
	case domain.SubscriptionCancelled:
	case domain.SubscriptionExpired:
		v.RequiresPaymentMethod = true
	default:
		v.RequiresPaymentMethod = true
		e.logger.WarnContext(ctx, "unknown subscription status", "user_id", sub.UserID, "status", sub.Status)
	}
	return v
}

// CanCreateAssignment reports whether the user may create assignments.
// When the store cannot be reached it allows the action.
func (e *Engine) CanCreateAssignment(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	view, err := e.CheckSubscriptionStatus(ctx, userID)
	if err != nil {
		e.logger.WarnContext(ctx, "subscription unknown, allowing assignment creation",
			"user_id", userID,
			observability.Err(err),
		)
		return true
	}
	return view.Entitled
}

// CanAccessCalendar reports whether the user may use calendar features.
// Only consistent paid subscriptions qualify; any failure denies.
func (e *Engine) CanAccessCalendar(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}
	view, err := e.CheckSubscriptionStatus(ctx, userID)
	if err != nil {
		e.logger.WarnContext(ctx, "subscription unknown, denying calendar access",
			"user_id", userID,
			observability.Err(err),
		)
		return false
	}
	if view.Status != domain.SubscriptionActive || !view.Entitled {
		return false
	}
	plan, ok := e.catalog.Lookup(view.PlanID)
	return ok && plan.HasFeature(domain.FeatureCalendar)
}

// GetTrialDaysRemaining returns whole trial days left, 0 on any failure.
func (e *Engine) GetTrialDaysRemaining(ctx context.Context, userID string) int {
	view, err := e.CheckSubscriptionStatus(ctx, userID)
	if err != nil {
		return 0
	}
	return view.TrialDaysRemaining
}

// ConvertTrialToPaid charges the user for the paid plan and activates the
// subscription. Calling it again for an active subscription succeeds
// without charging.
func (e *Engine) ConvertTrialToPaid(ctx context.Context, userID string, method domain.PaymentMethod) UpgradeResult {
	if userID == "" {
		return UpgradeResult{Message: "Sign in before upgrading."}
	}
	if err := method.Validate(); err != nil {
		return UpgradeResult{Message: fmt.Sprintf("Invalid payment method: %v.", err)}
	}

	unlock := e.upgrades.lock(userID)
	defer unlock()

	result, _ := observability.TimeOperationResult(ctx, e.logger, e.metrics, "convert_trial_to_paid", func() (UpgradeResult, error) {
		res := e.convert(ctx, userID, method)
		if !res.Success {
			return res, errors.New(res.Message)
		}
		return res, nil
	})
	return result
}

func (e *Engine) convert(ctx context.Context, userID string, method domain.PaymentMethod) UpgradeResult {
	existing, err := e.repo.FindByUserID(ctx, userID)
	if err != nil {
		e.metrics.Counter(observability.MetricStoreErrors, 1, observability.T("op", "find"))
		e.logger.ErrorContext(ctx, "failed to load subscription for upgrade",
			"user_id", userID,
			observability.Err(err),
		)
		return UpgradeResult{Message: "We could not load your subscription. Please try again."}
	}

	if existing != nil && existing.Status == domain.SubscriptionActive && existing.IsUpgraded() {
		return UpgradeResult{Success: true, Message: "You are already subscribed."}
	}

	plan := e.upgradePlan(existing)
	if !plan.IsPaid() {
		e.logger.ErrorContext(ctx, "no paid plan available", "user_id", userID, "plan_id", plan.ID)
		return UpgradeResult{Message: "No paid plan is available right now."}
	}

	charge, err := e.gateway.Charge(ctx, domain.ChargeRequest{
		UserID:        userID,
		PlanID:        plan.ID,
		PaymentMethod: method,
		Amount:        plan.Price,
		Currency:      plan.Currency,
	})
	if err == nil && (charge == nil || !charge.Success) {
		err = domain.ErrPaymentDeclined
	}
	if err != nil {
		e.metrics.Counter(observability.MetricPaymentCharges, 1, observability.T("result", chargeOutcome(err)))
		e.logger.WarnContext(ctx, "payment failed",
			"user_id", userID,
			"plan_id", plan.ID,
			observability.Err(err),
		)
		return UpgradeResult{Message: chargeFailureMessage(err)}
	}
	e.metrics.Counter(observability.MetricPaymentCharges, 1, observability.T("result", "success"))

	now := e.now().UTC()
	var from domain.SubscriptionStatus
	var sub *domain.Subscription
	if existing == nil {
		sub = domain.NewTrialSubscription(userID, plan, now)
	} else {
		from = existing.Status
		sub = existing.Clone()
	}
	sub.PlanID = plan.ID
	sub.Status = domain.SubscriptionActive
	sub.UpgradedAt = &now
	sub.UpdatedAt = now

	if err := e.repo.Upsert(ctx, sub); err != nil {
		e.metrics.Counter(observability.MetricStoreErrors, 1, observability.T("op", "upsert"))
		e.logger.ErrorContext(ctx, "charge succeeded but subscription was not saved",
			"user_id", userID,
			"transaction_id", charge.TransactionID,
			observability.Err(err),
		)
		return UpgradeResult{
			Message:       "Your payment went through but we could not activate your subscription. Please contact support with the transaction ID.",
			TransactionID: charge.TransactionID,
			Demo:          charge.Demo,
		}
	}
	e.metrics.Counter(observability.MetricSubscriptionTransitions, 1, observability.T("to", string(domain.SubscriptionActive)))

	e.recordPayment(ctx, domain.PaymentRecord{
		TransactionID: charge.TransactionID,
		UserID:        userID,
		PlanID:        plan.ID,
		Amount:        plan.Price,
		Currency:      plan.Currency,
		Demo:          charge.Demo,
		CreatedAt:     now,
	})

	e.logger.InfoContext(ctx, "subscription activated",
		"user_id", userID,
		"plan_id", plan.ID,
		"transaction_id", charge.TransactionID,
		"demo", charge.Demo,
	)

	e.notifier.Notify(ctx, ChangeEvent{
		ID:         uuid.New(),
		Kind:       ChangeUpgraded,
		UserID:     userID,
		PlanID:     plan.ID,
		From:       from,
		To:         domain.SubscriptionActive,
		OccurredAt: now,
	})

	return UpgradeResult{
		Success:       true,
		Message:       "Your subscription is now active.",
		TransactionID: charge.TransactionID,
		Demo:          charge.Demo,
	}
}

func (e *Engine) upgradePlan(existing *domain.Subscription) domain.Plan {
	if existing != nil {
		if plan, ok := e.catalog.Lookup(existing.PlanID); ok && plan.IsPaid() {
			return plan
		}
	}
	return e.catalog.Default()
}

func (e *Engine) recordPayment(ctx context.Context, record domain.PaymentRecord) {
	if e.ledger == nil {
		return
	}
	if err := e.ledger.Record(ctx, record); err != nil {
		e.logger.WarnContext(ctx, "failed to record payment",
			"user_id", record.UserID,
			"transaction_id", record.TransactionID,
			observability.Err(err),
		)
	}
}

func chargeOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrPaymentDeclined):
		return "declined"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

func chargeFailureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrPaymentDeclined):
		return "Your payment was declined. Check your payment details and try again."
	case errors.Is(err, domain.ErrInvalidPaymentMethod):
		return "Your payment method was rejected. Use a different one and try again."
	case errors.Is(err, domain.ErrPaymentProviderUnavailable):
		return "The payment provider is unavailable. Please try again in a few minutes."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The payment was interrupted before it completed. Please try again."
	default:
		return "The payment could not be processed. Please try again."
	}
}

// CancelSubscription marks the user's subscription cancelled. No refund is issued.
func (e *Engine) CancelSubscription(ctx context.Context, userID string) error {
	if userID == "" {
		return domain.ErrUserRequired
	}

	existing, err := e.repo.FindByUserID(ctx, userID)
	if err != nil {
		e.metrics.Counter(observability.MetricStoreErrors, 1, observability.T("op", "find"))
		return fmt.Errorf("cancel subscription: %w", err)
	}
	if existing == nil {
		return domain.ErrSubscriptionNotFound
	}

	if err := e.repo.UpdateStatus(ctx, userID, domain.SubscriptionCancelled, domain.StatusUpdate{}); err != nil {
		e.metrics.Counter(observability.MetricStoreErrors, 1, observability.T("op", "update_status"))
		return fmt.Errorf("cancel subscription: %w", err)
	}
	e.metrics.Counter(observability.MetricSubscriptionTransitions, 1, observability.T("to", string(domain.SubscriptionCancelled)))

	now := e.now().UTC()
	e.logger.InfoContext(ctx, "subscription cancelled", "user_id", userID, "from", existing.Status)

	e.notifier.Notify(ctx, ChangeEvent{
		ID:         uuid.New(),
		Kind:       ChangeCancelled,
		UserID:     userID,
		PlanID:     existing.PlanID,
		From:       existing.Status,
		To:         domain.SubscriptionCancelled,
		OccurredAt: now,
	})
	return nil
}

// AddSubscriptionChangeListener registers fn for committed transitions.
func (e *Engine) AddSubscriptionChangeListener(fn Listener) ListenerID {
	return e.notifier.Subscribe(fn)
}

// RemoveSubscriptionChangeListener unregisters a listener.
func (e *Engine) RemoveSubscriptionChangeListener(id ListenerID) bool {
	return e.notifier.Unsubscribe(id)
}

// userLocks serializes upgrades per user so concurrent calls charge once.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*userLock
}

type userLock struct {
	sync.Mutex
	refs int
}

func (l *userLocks) lock(userID string) (unlock func()) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*userLock)
	}
	ul, ok := l.locks[userID]
	if !ok {
		ul = &userLock{}
		l.locks[userID] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.Lock()
	return func() {
		ul.Unlock()
		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, userID)
		}
		l.mu.Unlock()
	}
}
