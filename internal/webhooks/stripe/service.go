package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
	"github.com/koepon-app/koepon-backend/pkg/logger"
)

type paymentBookkeeper interface {
	MarkSucceeded(ctx context.Context, paymentIntentID string) error
	MarkFailed(ctx context.Context, paymentIntentID string, reason string) error
}

// ServiceParams groups dependencies for the Stripe webhook service.
type ServiceParams struct {
	Payments paymentBookkeeper
	Logger   *logger.Logger
}

// Service applies Stripe payment intent events to local payment records.
type Service struct {
	payments paymentBookkeeper
	logg     *logger.Logger
}

// NewService builds the Stripe webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{payments: params.Payments, logg: params.Logger}, nil
}

// HandleEvent processes one verified Stripe event. Event types outside the
// payment intent lifecycle are acknowledged and ignored.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		ctx = s.logg.WithPaymentIntentID(ctx, intent.ID)
		if err := s.payments.MarkSucceeded(ctx, intent.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment succeeded")
		}
		s.logg.Info(ctx, "payment intent succeeded")
		return nil

	case stripe.EventTypePaymentIntentPaymentFailed:
		intent, err := decodeIntent(event)
		if err != nil {
			return err
		}
		ctx = s.logg.WithPaymentIntentID(ctx, intent.ID)
		reason := failureReason(intent)
		if err := s.payments.MarkFailed(ctx, intent.ID, reason); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
		}
		s.logg.Info(ctx, fmt.Sprintf("payment intent failed: %s", reason))
		return nil

	default:
		return nil
	}
}

func decodeIntent(event *stripe.Event) (*stripe.PaymentIntent, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode payment intent event")
	}
	if intent.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id missing from event")
	}
	return &intent, nil
}

func failureReason(intent *stripe.PaymentIntent) string {
	if intent.LastPaymentError == nil {
		return "unknown"
	}
	if intent.LastPaymentError.Code != "" {
		return string(intent.LastPaymentError.Code)
	}
	if intent.LastPaymentError.Msg != "" {
		return intent.LastPaymentError.Msg
	}
	return "unknown"
}
