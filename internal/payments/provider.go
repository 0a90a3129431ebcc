package payments

import (
	"context"

	"github.com/stripe/stripe-go/v84"

	pkgstripe "github.com/koepon-app/koepon-backend/pkg/stripe"
)

// Provider exposes the subset of Stripe payment intent operations the payment service needs.
type Provider interface {
	CreateIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error)
	RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error)
}

type stripeProvider struct {
	api *stripe.Client
}

// NewStripeProvider wraps the shared Stripe client so the payment service can be tested.
func NewStripeProvider(client *pkgstripe.Client) Provider {
	if client == nil || client.API() == nil {
		return nil
	}
	return &stripeProvider{api: client.API()}
}

func (p *stripeProvider) CreateIntent(ctx context.Context, params *stripe.PaymentIntentCreateParams) (*stripe.PaymentIntent, error) {
	return p.api.V1PaymentIntents.Create(ctx, params)
}

func (p *stripeProvider) RetrieveIntent(ctx context.Context, id string) (*stripe.PaymentIntent, error) {
	return p.api.V1PaymentIntents.Retrieve(ctx, id, &stripe.PaymentIntentRetrieveParams{})
}
