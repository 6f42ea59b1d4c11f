package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/tutora/adapter/cli"
	billingApp "github.com/felixgeelhaar/tutora/internal/billing/application"
	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/pkg/observability"
)

type upgradeInput struct {
	UserID string `json:"user_id,omitempty"`
	Method string `json:"method,omitempty"`
	Token  string `json:"token" jsonschema:"required"`
}

type accessResult struct {
	UserID             string `json:"user_id"`
	CreateAssignments  bool   `json:"create_assignments"`
	Calendar           bool   `json:"calendar"`
	TrialDaysRemaining int    `json:"trial_days_remaining"`
}

type assignmentResult struct {
	UserID  string `json:"user_id"`
	Allowed bool   `json:"allowed"`
}

// billingTools holds the handlers so they can be exercised without a transport.
type billingTools struct {
	app *cli.App
}

func (b billingTools) engine() (*billingApp.Engine, error) {
	if b.app == nil || b.app.Engine == nil {
		return nil, errEngineUnavailable
	}
	return b.app.Engine, nil
}

func (b billingTools) status(ctx context.Context, input userInput) (*billingApp.StatusView, error) {
	engine, err := b.engine()
	if err != nil {
		return nil, err
	}
	userID, err := resolveUser(b.app, input)
	if err != nil {
		return nil, err
	}
	return engine.CheckSubscriptionStatus(withUser(ctx, userID), userID)
}

func (b billingTools) upgrade(ctx context.Context, input upgradeInput) (billingApp.UpgradeResult, error) {
	engine, err := b.engine()
	if err != nil {
		return billingApp.UpgradeResult{}, err
	}
	userID, err := resolveUser(b.app, userInput{UserID: input.UserID})
	if err != nil {
		return billingApp.UpgradeResult{}, err
	}
	method := domain.PaymentMethodCard
	if input.Method != "" {
		method = domain.PaymentMethodType(input.Method)
	}
	return engine.ConvertTrialToPaid(withUser(ctx, userID), userID, domain.PaymentMethod{
		Type:  method,
		Token: input.Token,
	}), nil
}

func (b billingTools) cancel(ctx context.Context, input userInput) (map[string]any, error) {
	engine, err := b.engine()
	if err != nil {
		return nil, err
	}
	userID, err := resolveUser(b.app, input)
	if err != nil {
		return nil, err
	}
	if err := engine.CancelSubscription(withUser(ctx, userID), userID); err != nil {
		if errors.Is(err, domain.ErrSubscriptionNotFound) {
			return map[string]any{"user_id": userID, "cancelled": false, "message": "No subscription found."}, nil
		}
		return nil, err
	}
	return map[string]any{"user_id": userID, "cancelled": true}, nil
}

func (b billingTools) access(ctx context.Context, input userInput) (accessResult, error) {
	engine, err := b.engine()
	if err != nil {
		return accessResult{}, err
	}
	userID, err := resolveUser(b.app, input)
	if err != nil {
		return accessResult{}, err
	}
	ctx = withUser(ctx, userID)
	return accessResult{
		UserID:             userID,
		CreateAssignments:  engine.CanCreateAssignment(ctx, userID),
		Calendar:           engine.CanAccessCalendar(ctx, userID),
		TrialDaysRemaining: engine.GetTrialDaysRemaining(ctx, userID),
	}, nil
}

func (b billingTools) usage(ctx context.Context, input userInput) (domain.Usage, error) {
	if b.app == nil || b.app.UsageService == nil {
		return domain.Usage{}, errors.New("usage service not initialized")
	}
	userID, err := resolveUser(b.app, input)
	if err != nil {
		return domain.Usage{}, err
	}
	return b.app.UsageService.GetUsage(withUser(ctx, userID), userID)
}

func (b billingTools) assignmentCreated(ctx context.Context, input userInput) (assignmentResult, error) {
	if b.app == nil || b.app.UsageService == nil {
		return assignmentResult{}, errors.New("usage service not initialized")
	}
	userID, err := resolveUser(b.app, input)
	if err != nil {
		return assignmentResult{}, err
	}
	allowed, err := b.app.UsageService.RecordAssignmentCreated(withUser(ctx, userID), userID)
	if err != nil {
		return assignmentResult{}, err
	}
	return assignmentResult{UserID: userID, Allowed: allowed}, nil
}

func (b billingTools) plans(ctx context.Context, input struct{}) ([]planView, error) {
	engine, err := b.engine()
	if err != nil {
		return nil, err
	}
	return toPlanViews(engine.Catalog().Plans()), nil
}

func withUser(ctx context.Context, userID string) context.Context {
	if observability.CorrelationIDFromContext(ctx) == "" {
		ctx = observability.WithCorrelationID(ctx, "")
	}
	return observability.WithUserID(ctx, userID)
}

func registerBillingTools(srv *mcp.Server, deps ToolDependencies) error {
	tools := billingTools{app: deps.App}

	srv.Tool("billing.status").
		Description("Get subscription status, starting a trial for new users").
		Handler(tools.status)

	srv.Tool("billing.upgrade").
		Description("Convert the trial to the paid plan").
		Handler(tools.upgrade)

	srv.Tool("billing.cancel").
		Description("Cancel the subscription").
		Handler(tools.cancel)

	srv.Tool("billing.access").
		Description("Show which features are available").
		Handler(tools.access)

	srv.Tool("billing.usage").
		Description("Show assignment usage for the current period").
		Handler(tools.usage)

	srv.Tool("billing.assignment_created").
		Description("Record a created assignment if the plan allows it").
		Handler(tools.assignmentCreated)

	srv.Tool("billing.plans").
		Description("List available plans").
		Handler(tools.plans)

	return nil
}

func registerSystemTools(srv *mcp.Server, deps ToolDependencies) error {
	app := deps.App

	srv.Tool("system.health").
		Description("Check backing service health").
		Handler(func(ctx context.Context, input struct{}) (observability.OverallHealth, error) {
			if app == nil || app.Health == nil {
				return observability.OverallHealth{}, errors.New("health registry not initialized")
			}
			return app.Health.Check(ctx), nil
		})

	return nil
}
