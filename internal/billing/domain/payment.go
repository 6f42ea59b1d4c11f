package domain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// PaymentMethodType identifies how a user pays.
type PaymentMethodType string

const (
	PaymentMethodCard   PaymentMethodType = "card"
	PaymentMethodPayPal PaymentMethodType = "paypal"
)

// PaymentMethod is an opaque provider token plus its type.
type PaymentMethod struct {
	Type  PaymentMethodType
	Token string
}

// Validate checks that the method can be handed to a gateway.
func (m PaymentMethod) Validate() error {
	switch m.Type {
	case PaymentMethodCard, PaymentMethodPayPal:
	default:
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidPaymentMethod, m.Type)
	}
	if m.Token == "" {
		return fmt.Errorf("%w: token is required", ErrInvalidPaymentMethod)
	}
	return nil
}

// ChargeRequest describes a single charge.
type ChargeRequest struct {
	UserID        string
	PlanID        string
	PaymentMethod PaymentMethod
	Amount        decimal.Decimal
	Currency      string
}

// ChargeResult is the outcome of a successful charge.
type ChargeResult struct {
	Success       bool
	TransactionID string
	Demo          bool
}

// PaymentGateway charges users through an external billing provider.
type PaymentGateway interface {
	// Charge bills the payment method. A declined charge returns an error
	// wrapping ErrPaymentDeclined.
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}
