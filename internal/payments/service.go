package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/koepon-app/koepon-backend/pkg/db/models"
	"github.com/koepon-app/koepon-backend/pkg/enums"
	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
	"github.com/koepon-app/koepon-backend/pkg/logger"
)

const (
	singleDrawAmountYen int64 = 100
	multiDrawAmountYen  int64 = 1000

	singleDrawCount = 1
	multiDrawCount  = 10
)

// AmountForDrawCount maps a draw count to its fixed charge in yen.
// Only single and ten-pull draws are sold.
func AmountForDrawCount(count int) (int64, error) {
	switch count {
	case singleDrawCount:
		return singleDrawAmountYen, nil
	case multiDrawCount:
		return multiDrawAmountYen, nil
	default:
		return 0, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("draw count must be %d or %d", singleDrawCount, multiDrawCount))
	}
}

// Service defines payment operations backing paid gacha draws.
type Service interface {
	CreateIntent(ctx context.Context, input CreateIntentInput) (*CreateIntentResult, error)
	Confirm(ctx context.Context, paymentIntentID string) bool
	MarkSucceeded(ctx context.Context, paymentIntentID string) error
	MarkFailed(ctx context.Context, paymentIntentID string, reason string) error
	GetRecord(ctx context.Context, paymentIntentID string) (*models.PaymentRecord, error)
}

// CreateIntentInput captures what a draw payment needs from the caller.
type CreateIntentInput struct {
	UserID    uuid.UUID
	GachaID   uuid.UUID
	DrawCount int
}

// CreateIntentResult is returned to the client so it can confirm the payment.
type CreateIntentResult struct {
	PaymentIntentID string `json:"payment_intent_id"`
	ClientSecret    string `json:"client_secret"`
	AmountYen       int64  `json:"amount_yen"`
	Currency        string `json:"currency"`
	DrawCount       int    `json:"draw_count"`
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Repo     Repository
	Provider Provider
	Logger   *logger.Logger
}

type service struct {
	repo     Repository
	provider Provider
	logg     *logger.Logger
}

// NewService builds the payment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if params.Provider == nil {
		return nil, fmt.Errorf("payment provider required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		provider: params.Provider,
		logg:     params.Logger,
	}, nil
}

func (s *service) CreateIntent(ctx context.Context, input CreateIntentInput) (*CreateIntentResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.GachaID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gacha id required")
	}
	amount, err := AmountForDrawCount(input.DrawCount)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentCreateParams{
		Amount:      stripe.Int64(amount),
		Currency:    stripe.String(string(stripe.CurrencyJPY)),
		Description: stripe.String(fmt.Sprintf("Koepon gacha draw x%d", input.DrawCount)),
		AutomaticPaymentMethods: &stripe.PaymentIntentCreateAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("user_id", input.UserID.String())
	params.AddMetadata("gacha_id", input.GachaID.String())
	params.AddMetadata("draw_count", fmt.Sprintf("%d", input.DrawCount))

	intent, err := s.provider.CreateIntent(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create stripe payment intent")
	}

	record := &models.PaymentRecord{
		UserID:                input.UserID,
		GachaID:               input.GachaID,
		StripePaymentIntentID: intent.ID,
		AmountYen:             amount,
		Currency:              enums.CurrencyJPY,
		DrawCount:             input.DrawCount,
		Status:                enums.PaymentStatusCreated,
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist payment record")
	}

	return &CreateIntentResult{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountYen:       amount,
		Currency:        string(enums.CurrencyJPY),
		DrawCount:       input.DrawCount,
	}, nil
}

// Confirm reports whether the payment intent has actually succeeded at Stripe.
// Retrieval failures and any non-succeeded status both read as unconfirmed.
func (s *service) Confirm(ctx context.Context, paymentIntentID string) bool {
	if paymentIntentID == "" {
		return false
	}
	ctx = s.logg.WithPaymentIntentID(ctx, paymentIntentID)

	intent, err := s.provider.RetrieveIntent(ctx, paymentIntentID)
	if err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("payment intent retrieval failed: %v", err))
		return false
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		s.logg.Info(ctx, fmt.Sprintf("payment intent not confirmed (status %s)", intent.Status))
		return false
	}
	return true
}

func (s *service) MarkSucceeded(ctx context.Context, paymentIntentID string) error {
	if paymentIntentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	return s.repo.UpdateStatus(ctx, paymentIntentID, enums.PaymentStatusSucceeded, nil)
}

func (s *service) MarkFailed(ctx context.Context, paymentIntentID string, reason string) error {
	if paymentIntentID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	var failureReason *string
	if reason != "" {
		failureReason = &reason
	}
	return s.repo.UpdateStatus(ctx, paymentIntentID, enums.PaymentStatusFailed, failureReason)
}

func (s *service) GetRecord(ctx context.Context, paymentIntentID string) (*models.PaymentRecord, error) {
	if paymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	return s.repo.FindByIntentID(ctx, paymentIntentID)
}
