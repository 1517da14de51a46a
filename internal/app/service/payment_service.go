package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/verdantleaf/storefront-backend/config"
	"github.com/verdantleaf/storefront-backend/internal/app/model"
	"github.com/verdantleaf/storefront-backend/pkg/logger"
	"github.com/verdantleaf/storefront-backend/pkg/payment/paypal"
	"github.com/verdantleaf/storefront-backend/pkg/payment/stripe"
)

var (
	ErrUnknownProvider     = errors.New("unknown payment provider")
	ErrPaymentDeclined     = errors.New("payment was declined")
	ErrPaymentFailed       = errors.New("payment failed")
	ErrPaymentNotConfirmed = errors.New("payment is not confirmed")
)

// PaymentResult is the provider-neutral outcome of a payment call.
// Reference identifies the charge at the provider (intent id or PayPal
// order id) and is stored on the order row.
type PaymentResult struct {
	Provider     model.PaymentProvider `json:"provider"`
	Reference    string                `json:"reference"`
	Status       string                `json:"status"`
	Confirmed    bool                  `json:"confirmed"`
	ClientSecret string                `json:"client_secret,omitempty"`
	ApproveURL   string                `json:"approve_url,omitempty"`
}

// PaymentProvider adapts a payment backend to checkout's two calls:
// start a payment for an amount, then confirm it after the buyer acts.
type PaymentProvider interface {
	CreatePayment(ctx context.Context, amount float64, currency, description string, meta map[string]string) (*PaymentResult, error)
	ConfirmPayment(ctx context.Context, reference string) (*PaymentResult, error)
}

type PaymentService interface {
	Provider(name model.PaymentProvider) (PaymentProvider, error)
}

type paymentService struct {
	providers map[model.PaymentProvider]PaymentProvider
}

// NewPaymentService builds the provider registry from configuration.
func NewPaymentService(cfg *config.Config) (PaymentService, error) {
	stripeClient, err := stripe.NewClient(stripe.Config{
		SecretKey: cfg.Payment.Stripe.SecretKey,
		BaseURL:   cfg.Payment.Stripe.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create stripe client: %w", err)
	}

	paypalClient, err := paypal.NewClient(paypal.Config{
		ClientID:  cfg.Payment.PayPal.ClientID,
		Secret:    cfg.Payment.PayPal.Secret,
		BaseURL:   cfg.Payment.PayPal.BaseURL,
		ReturnURL: cfg.Payment.PayPal.ReturnURL,
		CancelURL: cfg.Payment.PayPal.CancelURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create paypal client: %w", err)
	}

	return &paymentService{
		providers: map[model.PaymentProvider]PaymentProvider{
			model.ProviderStripe: &stripeProvider{client: stripeClient},
			model.ProviderPayPal: &paypalProvider{client: paypalClient},
		},
	}, nil
}

func (s *paymentService) Provider(name model.PaymentProvider) (PaymentProvider, error) {
	provider, ok := s.providers[name]
	if !ok {
		logger.Warn("Unknown payment provider requested", map[string]interface{}{
			"provider": name,
		})
		return nil, ErrUnknownProvider
	}
	return provider, nil
}

// toMinorUnits converts a major-unit amount (e.g. 52.99) to minor
// units (5299). This is the only place the conversion happens for
// providers that bill in cents.
func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// stripeProvider charges through Stripe payment intents.
type stripeProvider struct {
	client *stripe.Client
}

func (p *stripeProvider) CreatePayment(ctx context.Context, amount float64, currency, description string, meta map[string]string) (*PaymentResult, error) {
	logger.Info("Creating stripe payment intent", map[string]interface{}{
		"amount":   amount,
		"currency": currency,
	})

	intent, err := p.client.CreateIntent(ctx, stripe.CreateIntentRequest{
		Amount:      toMinorUnits(amount),
		Currency:    currency,
		Description: description,
		Metadata:    meta,
	})
	if err != nil {
		logger.Error("Failed to create stripe payment intent", err, map[string]interface{}{
			"amount": amount,
		})
		return nil, mapStripeError(err)
	}

	return &PaymentResult{
		Provider:     model.ProviderStripe,
		Reference:    intent.ID,
		Status:       intent.Status,
		Confirmed:    intent.Status == "succeeded",
		ClientSecret: intent.ClientSecret,
	}, nil
}

func (p *stripeProvider) ConfirmPayment(ctx context.Context, reference string) (*PaymentResult, error) {
	intent, err := p.client.GetIntent(ctx, reference)
	if err != nil {
		logger.Error("Failed to fetch stripe payment intent", err, map[string]interface{}{
			"reference": reference,
		})
		return nil, mapStripeError(err)
	}

	result := &PaymentResult{
		Provider:  model.ProviderStripe,
		Reference: intent.ID,
		Status:    intent.Status,
		Confirmed: intent.Status == "succeeded",
	}
	if !result.Confirmed {
		logger.Warn("Stripe payment intent not confirmed", map[string]interface{}{
			"reference": reference,
			"status":    intent.Status,
		})
		return result, ErrPaymentNotConfirmed
	}
	return result, nil
}

func mapStripeError(err error) error {
	switch {
	case errors.Is(err, stripe.ErrCardDeclined):
		return ErrPaymentDeclined
	case errors.Is(err, stripe.ErrInvalidRequest), errors.Is(err, stripe.ErrUnauthorized):
		return ErrPaymentFailed
	case errors.Is(err, stripe.ErrNetworkError):
		return err
	default:
		return ErrPaymentFailed
	}
}

// paypalProvider charges through PayPal checkout orders.
type paypalProvider struct {
	client *paypal.Client
}

func (p *paypalProvider) CreatePayment(ctx context.Context, amount float64, currency, description string, meta map[string]string) (*PaymentResult, error) {
	logger.Info("Creating paypal order", map[string]interface{}{
		"amount":   amount,
		"currency": currency,
	})

	// PayPal bills in major units as a decimal string
	money := paypal.MoneyAmount{
		CurrencyCode: strings.ToUpper(currency),
		Value:        fmt.Sprintf("%.2f", amount),
	}

	order, err := p.client.CreateOrder(ctx, money, meta["reference"], description)
	if err != nil {
		logger.Error("Failed to create paypal order", err, map[string]interface{}{
			"amount": amount,
		})
		return nil, mapPayPalError(err)
	}

	return &PaymentResult{
		Provider:   model.ProviderPayPal,
		Reference:  order.ID,
		Status:     order.Status,
		Confirmed:  order.Status == "COMPLETED",
		ApproveURL: order.ApproveURL(),
	}, nil
}

func (p *paypalProvider) ConfirmPayment(ctx context.Context, reference string) (*PaymentResult, error) {
	order, err := p.client.CaptureOrder(ctx, reference)
	if err != nil {
		logger.Error("Failed to capture paypal order", err, map[string]interface{}{
			"reference": reference,
		})
		return nil, mapPayPalError(err)
	}

	result := &PaymentResult{
		Provider:  model.ProviderPayPal,
		Reference: order.ID,
		Status:    order.Status,
		Confirmed: order.Status == "COMPLETED",
	}
	if !result.Confirmed {
		logger.Warn("PayPal order not completed after capture", map[string]interface{}{
			"reference": reference,
			"status":    order.Status,
		})
		return result, ErrPaymentNotConfirmed
	}
	return result, nil
}

func mapPayPalError(err error) error {
	switch {
	case errors.Is(err, paypal.ErrOrderNotApproved):
		return ErrPaymentNotConfirmed
	case errors.Is(err, paypal.ErrInvalidRequest), errors.Is(err, paypal.ErrUnauthorized):
		return ErrPaymentFailed
	case errors.Is(err, paypal.ErrNetworkError):
		return err
	default:
		return ErrPaymentFailed
	}
}
