// Package payment provides the gateways that charge users for a plan.
package payment

import (
	"log/slog"
	"time"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/resilience"
	"github.com/felixgeelhaar/tutora/pkg/config"
)

// GatewayConfig selects and configures a gateway.
type GatewayConfig struct {
	PayPal    PayPalConfig
	DemoDelay time.Duration
}

// NewGateway returns the PayPal gateway when real credentials are present
// and the demo gateway otherwise.
func NewGateway(cfg GatewayConfig, recorder resilience.StateRecorder, logger *slog.Logger) domain.PaymentGateway {
	if logger == nil {
		logger = slog.Default()
	}

	if config.IsPlaceholder(cfg.PayPal.ClientID) || config.IsPlaceholder(cfg.PayPal.ClientSecret) {
		logger.Warn("payment credentials not configured, using demo gateway")
		return NewDemoGateway(cfg.DemoDelay, logger)
	}

	breaker := resilience.NewBreaker(resilience.DefaultBreakerConfig("paypal"), logger, recorder)
	return NewPayPalGateway(cfg.PayPal, breaker, logger)
}

// IsDemo reports whether gw is the demo gateway.
func IsDemo(gw domain.PaymentGateway) bool {
	_, ok := gw.(*DemoGateway)
	return ok
}
