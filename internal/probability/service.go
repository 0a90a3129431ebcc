package probability

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/koepon-app/koepon-backend/pkg/db/models"
	"github.com/koepon-app/koepon-backend/pkg/enums"
	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
	"github.com/koepon-app/koepon-backend/pkg/logger"
)

var (
	hundredPercent = decimal.NewFromInt(100)

	// Two acceptance bands around 100%: inside the strict band the set is
	// clean, inside the relaxed band it saves with a warning, outside it is
	// rejected.
	strictTolerance  = decimal.RequireFromString("0.001")
	relaxedTolerance = decimal.RequireFromString("0.02")

	// Probabilities carry at most three decimal places (numeric(6,3)).
	placesScale = decimal.NewFromInt(1000)
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Entry is one item row in a probability set submission.
type Entry struct {
	Name        string          `json:"name"`
	Rarity      enums.Rarity    `json:"rarity"`
	Probability decimal.Decimal `json:"probability"`
}

// ValidationResult reports the outcome of a probability set validation.
type ValidationResult struct {
	Sum     decimal.Decimal `json:"sum"`
	Warning string          `json:"warning,omitempty"`
}

// Service validates and stores gacha probability sets.
type Service interface {
	Validate(entries []Entry) (*ValidationResult, error)
	Save(ctx context.Context, gachaID uuid.UUID, entries []Entry) (*ValidationResult, error)
	Get(ctx context.Context, gachaID uuid.UUID) ([]Entry, error)
}

// ServiceParams groups dependencies for the probability service.
type ServiceParams struct {
	Repo   Repository
	Tx     txRunner
	Logger *logger.Logger
}

type service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService builds the probability service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("probability repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: params.Repo, tx: params.Tx, logg: params.Logger}, nil
}

// Validate checks the entries against the 100% sum rule and the per-entry
// constraints. It never touches storage.
func (s *service) Validate(entries []Entry) (*ValidationResult, error) {
	if len(entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "probability set must contain at least one entry")
	}

	names := map[string]bool{}
	sum := decimal.Zero
	for i, entry := range entries {
		if entry.Name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("entry %d: name is required", i+1))
		}
		if names[entry.Name] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("entry %d: duplicate item name %q", i+1, entry.Name))
		}
		names[entry.Name] = true

		if !entry.Rarity.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("entry %d: invalid rarity %q", i+1, entry.Rarity))
		}
		if !entry.Probability.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("entry %d: probability must be positive", i+1))
		}
		if !entry.Probability.Mul(placesScale).IsInteger() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("entry %d: probability has more than three decimal places", i+1))
		}
		sum = sum.Add(entry.Probability)
	}

	delta := sum.Sub(hundredPercent).Abs()
	switch {
	case delta.LessThanOrEqual(strictTolerance):
		return &ValidationResult{Sum: sum}, nil
	case delta.LessThanOrEqual(relaxedTolerance):
		return &ValidationResult{
			Sum:     sum,
			Warning: fmt.Sprintf("probabilities sum to %s%%, outside the strict tolerance", sum),
		}, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("probabilities sum to %s%%, expected 100%%", sum)).
			WithDetails(map[string]any{"sum": sum.String()})
	}
}

// Save validates and, only when validation passes, replaces the gacha's item
// set in one transaction.
func (s *service) Save(ctx context.Context, gachaID uuid.UUID, entries []Entry) (*ValidationResult, error) {
	if gachaID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gacha id required")
	}

	result, err := s.Validate(entries)
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.GachaExists(ctx, gachaID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "gacha not found")
	}

	items := make([]models.GachaItem, len(entries))
	for i, entry := range entries {
		items[i] = models.GachaItem{
			GachaID:     gachaID,
			Name:        entry.Name,
			Rarity:      entry.Rarity,
			Probability: entry.Probability,
		}
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).ReplaceItems(ctx, gachaID, items)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace probability set")
	}

	if result.Warning != "" {
		s.logg.Warn(s.logg.WithGachaID(ctx, gachaID.String()), result.Warning)
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, gachaID uuid.UUID) ([]Entry, error) {
	if gachaID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gacha id required")
	}
	items, err := s.repo.ListItems(ctx, gachaID)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, len(items))
	for i, item := range items {
		entries[i] = Entry{
			Name:        item.Name,
			Rarity:      item.Rarity,
			Probability: item.Probability,
		}
	}
	return entries, nil
}
