package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fjod/go_storefront/internal/pkg/circuitbreaker"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/checkout/session"
	"github.com/stripe/stripe-go/v80/webhook"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	// AllowedShippingCountries are ISO country codes offered at checkout.
	AllowedShippingCountries []string
}

type StripeProcessor struct {
	sessions      *session.Client
	webhookSecret string
	currency      string
	countries     []string
	breaker       *circuitbreaker.Breaker
}

func NewStripeProcessor(cfg StripeConfig, breaker *circuitbreaker.Breaker) *StripeProcessor {
	return NewStripeProcessorWithBackend(cfg, stripe.GetBackend(stripe.APIBackend), breaker)
}

// NewStripeProcessorWithBackend lets tests point the client at a fake API.
func NewStripeProcessorWithBackend(cfg StripeConfig, backend stripe.Backend, breaker *circuitbreaker.Breaker) *StripeProcessor {
	currency := cfg.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	countries := cfg.AllowedShippingCountries
	if len(countries) == 0 {
		countries = []string{"US", "CA", "GB"}
	}
	return &StripeProcessor{
		sessions:      &session.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		countries:     countries,
		breaker:       breaker,
	}
}

func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, in SessionParams) (*Session, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:                     stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes:       stripe.StringSlice([]string{"card"}),
		SuccessURL:               stripe.String(in.SuccessURL),
		CancelURL:                stripe.String(in.CancelURL),
		BillingAddressCollection: stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired)),
		ShippingAddressCollection: &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(p.countries),
		},
	}
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	for _, li := range in.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(li.Name),
		}
		if li.Image != "" {
			productData.Images = stripe.StringSlice([]string{li.Image})
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(p.currency),
				UnitAmount:  stripe.Int64(li.UnitAmount),
				ProductData: productData,
			},
			Quantity: stripe.Int64(li.Quantity),
		})
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx

	s, err := p.call(func() (*stripe.CheckoutSession, error) {
		return p.sessions.New(params)
	})
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return toSession(s), nil
}

func (p *StripeProcessor) RetrieveSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.AddExpand("line_items")
	params.Context = ctx

	s, err := p.call(func() (*stripe.CheckoutSession, error) {
		return p.sessions.Get(id, params)
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}
	return toSession(s), nil
}

func (p *StripeProcessor) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: event.ID, Type: string(event.Type)}
	if event.Type == stripe.EventTypeCheckoutSessionCompleted {
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session event: %w", err)
		}
		out.Session = toSession(&s)
	}
	return out, nil
}

func (p *StripeProcessor) call(fn func() (*stripe.CheckoutSession, error)) (*stripe.CheckoutSession, error) {
	if p.breaker == nil {
		return fn()
	}
	return circuitbreaker.Run(p.breaker, fn)
}

func toSession(s *stripe.CheckoutSession) *Session {
	out := &Session{
		ID:          s.ID,
		URL:         s.URL,
		Status:      string(s.Status),
		Metadata:    s.Metadata,
		AmountTotal: s.AmountTotal,
	}
	if s.CustomerDetails != nil {
		out.CustomerName = s.CustomerDetails.Name
		out.CustomerEmail = s.CustomerDetails.Email
	}
	if out.CustomerEmail == "" {
		out.CustomerEmail = s.CustomerEmail
	}
	if s.LineItems != nil {
		for _, li := range s.LineItems.Data {
			out.LineItems = append(out.LineItems, SessionLineItem{
				ID:          li.ID,
				Description: li.Description,
				Quantity:    li.Quantity,
				AmountTotal: li.AmountTotal,
			})
		}
	}
	return out
}
