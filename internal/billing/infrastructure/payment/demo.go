package payment

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
)

// DefaultDemoDelay simulates provider latency.
const DefaultDemoDelay = time.Second

// DemoGateway approves every valid charge after a short delay. It stands
// in for the provider when no credentials are configured.
type DemoGateway struct {
	delay  time.Duration
	logger *slog.Logger
}

// NewDemoGateway creates a demo gateway. A negative delay means no delay.
func NewDemoGateway(delay time.Duration, logger *slog.Logger) *DemoGateway {
	if logger == nil {
		logger = slog.Default()
	}
	if delay < 0 {
		delay = 0
	}
	return &DemoGateway{delay: delay, logger: logger}
}

// Charge waits for the configured delay and returns a demo transaction.
func (g *DemoGateway) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	if err := req.PaymentMethod.Validate(); err != nil {
		return nil, err
	}

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	txID := "demo_" + uuid.NewString()
	g.logger.Info("demo payment approved",
		"user_id", req.UserID,
		"amount", req.Amount.StringFixed(2),
		"currency", req.Currency,
		"transaction_id", txID,
	)
	return &domain.ChargeResult{Success: true, TransactionID: txID, Demo: true}, nil
}

var _ domain.PaymentGateway = (*DemoGateway)(nil)
