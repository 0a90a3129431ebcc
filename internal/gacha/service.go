package gacha

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/koepon-app/koepon-backend/internal/medals"
	"github.com/koepon-app/koepon-backend/internal/payments"
	pkgdb "github.com/koepon-app/koepon-backend/pkg/db"
	"github.com/koepon-app/koepon-backend/pkg/db/models"
	"github.com/koepon-app/koepon-backend/pkg/enums"
	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
	"github.com/koepon-app/koepon-backend/pkg/logger"
	"github.com/koepon-app/koepon-backend/pkg/metrics"
)

const paymentUsageConstraint = "idx_payment_usages_intent"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type paymentConfirmer interface {
	Confirm(ctx context.Context, paymentIntentID string) bool
}

type medalEarner interface {
	Earn(ctx context.Context, input medals.EarnInput) error
}

// Service executes paid gacha draws.
type Service interface {
	ExecuteDraw(ctx context.Context, input ExecuteDrawInput) (*DrawOutcome, error)
	ListGachas(ctx context.Context) ([]models.Gacha, error)
	GetGacha(ctx context.Context, id uuid.UUID) (*models.Gacha, error)
	DrawHistory(ctx context.Context, userID uuid.UUID, limit int) ([]DrawOutcome, error)
	Stats(ctx context.Context) (*Stats, error)
}

// ExecuteDrawInput identifies the paid draw to perform.
type ExecuteDrawInput struct {
	UserID          uuid.UUID
	GachaID         uuid.UUID
	DrawCount       int
	PaymentIntentID string
}

// DrawnItem is one awarded item in draw order.
type DrawnItem struct {
	ItemID   uuid.UUID    `json:"item_id"`
	Name     string       `json:"name"`
	Rarity   enums.Rarity `json:"rarity"`
	Position int          `json:"position"`
}

// DrawOutcome is the client-facing draw result. Medals only ever flow in as a
// reward here, so the payload carries medals_earned and nothing about spending.
type DrawOutcome struct {
	DrawID          uuid.UUID   `json:"draw_id"`
	GachaID         uuid.UUID   `json:"gacha_id"`
	DrawCount       int         `json:"draw_count"`
	Items           []DrawnItem `json:"items"`
	MedalsEarned    int64       `json:"medals_earned"`
	PaymentIntentID string      `json:"payment_intent_id"`
	AmountYen       int64       `json:"amount_yen"`
	CreatedAt       time.Time   `json:"created_at"`
}

// Stats aggregates draw activity for the admin dashboard.
type Stats struct {
	TotalDraws        int64 `json:"total_draws"`
	TotalMedalsEarned int64 `json:"total_medals_earned"`
}

// ServiceParams groups dependencies for the gacha service.
type ServiceParams struct {
	Repo          Repository
	Payments      paymentConfirmer
	Medals        medalEarner
	Tx            txRunner
	Selector      Selector
	Logger        *logger.Logger
	Metrics       *metrics.DrawMetrics
	MedalsPerDraw int
}

type service struct {
	repo          Repository
	payments      paymentConfirmer
	medals        medalEarner
	tx            txRunner
	selector      Selector
	logg          *logger.Logger
	metrics       *metrics.DrawMetrics
	medalsPerDraw int
}

// NewService builds the gacha service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("gacha repository required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment service required")
	}
	if params.Medals == nil {
		return nil, fmt.Errorf("medal service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Selector == nil {
		params.Selector = NewWeightedSelector(nil)
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.MedalsPerDraw <= 0 {
		return nil, fmt.Errorf("medals per draw must be positive")
	}
	return &service{
		repo:          params.Repo,
		payments:      params.Payments,
		medals:        params.Medals,
		tx:            params.Tx,
		selector:      params.Selector,
		logg:          params.Logger,
		metrics:       params.Metrics,
		medalsPerDraw: params.MedalsPerDraw,
	}, nil
}

func (s *service) ExecuteDraw(ctx context.Context, input ExecuteDrawInput) (*DrawOutcome, error) {
	start := time.Now()

	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.GachaID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gacha id required")
	}
	if input.PaymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	amount, err := payments.AmountForDrawCount(input.DrawCount)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithGachaID(ctx, input.GachaID.String())
	ctx = s.logg.WithPaymentIntentID(ctx, input.PaymentIntentID)

	gacha, err := s.loadDrawableGacha(ctx, input.GachaID)
	if err != nil {
		return nil, err
	}
	gachaName := gacha.Name

	// Claim the payment intent before anything else. The unique constraint
	// makes the second claim for the same intent fail, which closes the
	// double-reward race between concurrent draw requests.
	if err := s.claimPayment(ctx, input); err != nil {
		s.metrics.IncFailure("payment_already_used")
		return nil, err
	}

	if !s.payments.Confirm(ctx, input.PaymentIntentID) {
		s.releaseClaim(ctx, input.PaymentIntentID)
		s.metrics.IncFailure("payment_not_confirmed")
		return nil, pkgerrors.New(pkgerrors.CodePaymentNotConfirmed, "payment has not succeeded yet")
	}

	selected, err := s.selector.Select(gacha.Items, input.DrawCount)
	if err != nil {
		s.releaseClaim(ctx, input.PaymentIntentID)
		s.metrics.IncFailure("selection_failed")
		return nil, err
	}

	medalsEarned := int64(input.DrawCount * s.medalsPerDraw)

	record := &models.DrawResult{
		UserID:                input.UserID,
		GachaID:               gacha.ID,
		DrawCount:             input.DrawCount,
		MedalsEarned:          medalsEarned,
		StripePaymentIntentID: input.PaymentIntentID,
		AmountYen:             amount,
		Items:                 make([]models.DrawResultItem, len(selected)),
	}
	for i, item := range selected {
		record.Items[i] = models.DrawResultItem{
			GachaItemID: item.ID,
			Name:        item.Name,
			Rarity:      item.Rarity,
			Position:    i + 1,
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateDrawResult(ctx, record)
	})
	if err != nil {
		s.releaseClaim(ctx, input.PaymentIntentID)
		s.metrics.IncFailure("persist_failed")
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist draw result")
	}

	// The draw is paid and persisted at this point. A failed medal credit is
	// logged for reconciliation rather than unwinding the awarded items.
	if err := s.medals.Earn(ctx, medals.EarnInput{
		UserID:   input.UserID,
		Amount:   medalsEarned,
		Source:   enums.MedalSourceGacha,
		VTuberID: &gacha.VTuberID,
	}); err != nil {
		s.logg.Error(ctx, "medal credit failed after draw", err)
	}

	s.metrics.ObserveDuration(gachaName, time.Since(start))
	s.metrics.IncSuccess(gachaName)
	s.metrics.AddMedalsEarned(medalsEarned)

	return s.outcomeFromRecord(record), nil
}

func (s *service) ListGachas(ctx context.Context) ([]models.Gacha, error) {
	return s.repo.ListGachas(ctx, true)
}

func (s *service) GetGacha(ctx context.Context, id uuid.UUID) (*models.Gacha, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gacha id required")
	}
	gacha, err := s.repo.FindGacha(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gacha not found")
		}
		return nil, err
	}
	return gacha, nil
}

func (s *service) DrawHistory(ctx context.Context, userID uuid.UUID, limit int) ([]DrawOutcome, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	records, err := s.repo.ListDrawResultsByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	outcomes := make([]DrawOutcome, len(records))
	for i := range records {
		outcomes[i] = *s.outcomeFromRecord(&records[i])
	}
	return outcomes, nil
}

func (s *service) Stats(ctx context.Context) (*Stats, error) {
	totalDraws, err := s.repo.CountDraws(ctx)
	if err != nil {
		return nil, err
	}
	totalMedals, err := s.repo.SumMedalsEarned(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{TotalDraws: totalDraws, TotalMedalsEarned: totalMedals}, nil
}

func (s *service) loadDrawableGacha(ctx context.Context, id uuid.UUID) (*models.Gacha, error) {
	gacha, err := s.repo.FindGacha(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gacha not found")
		}
		return nil, err
	}
	if !gacha.Active {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "gacha is not active")
	}
	now := time.Now()
	if gacha.StartsAt != nil && now.Before(*gacha.StartsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "gacha has not started yet")
	}
	if gacha.EndsAt != nil && now.After(*gacha.EndsAt) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "gacha has ended")
	}
	if len(gacha.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "gacha has no items")
	}
	return gacha, nil
}

func (s *service) claimPayment(ctx context.Context, input ExecuteDrawInput) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ClaimPayment(ctx, &models.PaymentUsage{
			StripePaymentIntentID: input.PaymentIntentID,
			UserID:                input.UserID,
		})
	})
	if err != nil {
		if pkgdb.IsUniqueViolation(err, paymentUsageConstraint) {
			return pkgerrors.New(pkgerrors.CodePaymentAlreadyUsed, "payment has already been used for a draw")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim payment intent")
	}
	return nil
}

func (s *service) releaseClaim(ctx context.Context, intentID string) {
	if err := s.repo.ReleasePayment(ctx, intentID); err != nil {
		s.logg.Error(ctx, "release payment claim failed", err)
	}
}

func (s *service) outcomeFromRecord(record *models.DrawResult) *DrawOutcome {
	items := make([]DrawnItem, len(record.Items))
	for i, item := range record.Items {
		items[i] = DrawnItem{
			ItemID:   item.GachaItemID,
			Name:     item.Name,
			Rarity:   item.Rarity,
			Position: item.Position,
		}
	}
	return &DrawOutcome{
		DrawID:          record.ID,
		GachaID:         record.GachaID,
		DrawCount:       record.DrawCount,
		Items:           items,
		MedalsEarned:    record.MedalsEarned,
		PaymentIntentID: record.StripePaymentIntentID,
		AmountYen:       record.AmountYen,
		CreatedAt:       record.CreatedAt,
	}
}
