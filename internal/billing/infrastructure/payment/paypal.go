package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/resilience"
)

// DefaultPayPalBaseURL is the PayPal sandbox API.
const DefaultPayPalBaseURL = "https://api-m.sandbox.paypal.com"

const paypalTimeout = 15 * time.Second

// PayPalConfig configures the PayPal gateway.
type PayPalConfig struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
}

// PayPalGateway charges payment tokens through the PayPal REST API.
type PayPalGateway struct {
	baseURL string
	client  *http.Client
	breaker *resilience.Breaker
	logger  *slog.Logger
}

// NewPayPalGateway creates a PayPal gateway. Access tokens are fetched with
// the client-credentials grant and cached until expiry.
func NewPayPalGateway(cfg PayPalConfig, breaker *resilience.Breaker, logger *slog.Logger) *PayPalGateway {
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultPayPalBaseURL
	}
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.DefaultBreakerConfig("paypal"), logger, nil)
	}

	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     baseURL + "/v1/oauth2/token",
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	base := &http.Client{Timeout: paypalTimeout}
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	client := oauth2.NewClient(tokenCtx, cc.TokenSource(tokenCtx))
	client.Timeout = paypalTimeout

	return &PayPalGateway{
		baseURL: baseURL,
		client:  client,
		breaker: breaker,
		logger:  logger,
	}
}

type chargeAmount struct {
	Value        string `json:"value"`
	CurrencyCode string `json:"currency_code"`
}

type paymentSource struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type chargeBody struct {
	ReferenceID   string        `json:"reference_id"`
	Description   string        `json:"description"`
	Amount        chargeAmount  `json:"amount"`
	PaymentSource paymentSource `json:"payment_source"`
}

type chargeResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Charge submits the charge. Declines wrap ErrPaymentDeclined; transport
// failures and an open circuit wrap ErrPaymentProviderUnavailable.
func (g *PayPalGateway) Charge(ctx context.Context, req domain.ChargeRequest) (*domain.ChargeResult, error) {
	if err := req.PaymentMethod.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(chargeBody{
		ReferenceID: req.UserID,
		Description: "Tutora " + req.PlanID + " subscription",
		Amount: chargeAmount{
			Value:        req.Amount.StringFixed(2),
			CurrencyCode: req.Currency,
		},
		PaymentSource: paymentSource{
			Type:  string(req.PaymentMethod.Type),
			Token: req.PaymentMethod.Token,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode charge: %w", err)
	}

	var result *domain.ChargeResult
	var declined error
	err = g.breaker.Do(func() error {
		res, err := g.post(ctx, body)
		if errors.Is(err, domain.ErrPaymentDeclined) {
			// A decline is a healthy provider answer.
			declined = err
			return nil
		}
		result = res
		return err
	})
	if declined != nil {
		return nil, declined
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrPaymentProviderUnavailable, err)
	}

	g.logger.Info("paypal charge completed",
		"user_id", req.UserID,
		"transaction_id", result.TransactionID,
	)
	return result, nil
}

func (g *PayPalGateway) post(ctx context.Context, body []byte) (*domain.ChargeResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v2/payments/charges", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("paypal returned %d", resp.StatusCode)
	}

	var parsed chargeResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &parsed); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("decode charge response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := parsed.Name
		if reason == "" {
			reason = http.StatusText(resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, reason)
	}

	switch strings.ToUpper(parsed.Status) {
	case "COMPLETED", "APPROVED":
		return &domain.ChargeResult{Success: true, TransactionID: parsed.ID}, nil
	default:
		return nil, fmt.Errorf("%w: status %q", domain.ErrPaymentDeclined, parsed.Status)
	}
}

var _ domain.PaymentGateway = (*PayPalGateway)(nil)
