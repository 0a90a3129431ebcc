package medals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/koepon-app/koepon-backend/internal/exchange"
	"github.com/koepon-app/koepon-backend/pkg/db/models"
	"github.com/koepon-app/koepon-backend/pkg/enums"
	pkgerrors "github.com/koepon-app/koepon-backend/pkg/errors"
	"github.com/koepon-app/koepon-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type balanceCache interface {
	MedalBalanceKey(userID string) string
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Service defines medal wallet operations.
type Service interface {
	Earn(ctx context.Context, input EarnInput) error
	GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error)
	Exchange(ctx context.Context, userID, itemID uuid.UUID) (*ExchangeResult, error)
	History(ctx context.Context, userID uuid.UUID, limit int) ([]models.MedalTransaction, error)
}

// EarnInput credits medals to a user's wallet.
type EarnInput struct {
	UserID   uuid.UUID
	Amount   int64
	Source   enums.MedalSource
	VTuberID *uuid.UUID
	ItemID   *uuid.UUID
}

// VTuberBalance is the per-VTuber slice of a wallet.
type VTuberBalance struct {
	VTuberID uuid.UUID `json:"vtuber_id"`
	Medals   int64     `json:"medals"`
}

// Balance is the wallet view returned to clients and cached in redis.
type Balance struct {
	UserID          uuid.UUID       `json:"user_id"`
	TotalMedals     int64           `json:"total_medals"`
	AvailableMedals int64           `json:"available_medals"`
	LockedMedals    int64           `json:"locked_medals"`
	VTuberBalances  []VTuberBalance `json:"vtuber_balances"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ExchangeResult reports a completed medal exchange.
type ExchangeResult struct {
	RecordID   uuid.UUID `json:"record_id"`
	ItemID     uuid.UUID `json:"item_id"`
	ItemName   string    `json:"item_name"`
	CostMedals int64     `json:"cost_medals"`
}

// ServiceParams groups dependencies for the medal service.
type ServiceParams struct {
	Repo            Repository
	Catalog         exchange.Repository
	Tx              txRunner
	Cache           balanceCache
	Logger          *logger.Logger
	BalanceCacheTTL time.Duration
}

type service struct {
	repo     Repository
	catalog  exchange.Repository
	tx       txRunner
	cache    balanceCache
	logg     *logger.Logger
	cacheTTL time.Duration
}

// NewService builds the medal service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("medals repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("exchange catalog required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     params.Repo,
		catalog:  params.Catalog,
		tx:       params.Tx,
		cache:    params.Cache,
		logg:     params.Logger,
		cacheTTL: params.BalanceCacheTTL,
	}, nil
}

func (s *service) Earn(ctx context.Context, input EarnInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.Amount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Source.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid medal source %q", input.Source))
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Credit(ctx, input.UserID, input.Amount); err != nil {
			return err
		}
		if input.VTuberID != nil {
			if err := repo.CreditVTuber(ctx, input.UserID, *input.VTuberID, input.Amount); err != nil {
				return err
			}
		}
		return repo.CreateTransaction(ctx, &models.MedalTransaction{
			UserID:   input.UserID,
			Type:     enums.MedalTransactionTypeEarn,
			Source:   input.Source,
			Amount:   input.Amount,
			VTuberID: input.VTuberID,
			ItemID:   input.ItemID,
		})
	})
	if err != nil {
		return err
	}

	s.invalidateBalance(ctx, input.UserID)
	return nil
}

func (s *service) GetBalance(ctx context.Context, userID uuid.UUID) (*Balance, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	if cached := s.cachedBalance(ctx, userID); cached != nil {
		return cached, nil
	}

	balance := &Balance{UserID: userID, VTuberBalances: []VTuberBalance{}}

	stored, err := s.repo.FindBalance(ctx, userID)
	switch {
	case err == gorm.ErrRecordNotFound:
		// fresh wallet, all zeroes
	case err != nil:
		return nil, err
	default:
		balance.TotalMedals = stored.TotalMedals
		balance.AvailableMedals = stored.AvailableMedals
		balance.LockedMedals = stored.LockedMedals
		balance.UpdatedAt = stored.UpdatedAt
	}

	vtuberBalances, err := s.repo.ListVTuberBalances(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, vb := range vtuberBalances {
		balance.VTuberBalances = append(balance.VTuberBalances, VTuberBalance{
			VTuberID: vb.VTuberID,
			Medals:   vb.Medals,
		})
	}

	s.storeBalance(ctx, balance)
	return balance, nil
}

func (s *service) Exchange(ctx context.Context, userID, itemID uuid.UUID) (*ExchangeResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exchange item id required")
	}

	item, err := s.catalog.FindItem(ctx, itemID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "exchange item not found")
		}
		return nil, err
	}
	if !item.Active {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "exchange item is no longer available")
	}

	var result *ExchangeResult
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		catalog := s.catalog.WithTx(tx)

		debited, err := repo.Debit(ctx, userID, item.CostMedals)
		if err != nil {
			return err
		}
		if !debited {
			return pkgerrors.New(pkgerrors.CodeInsufficientMedals, "not enough medals for this exchange").
				WithDetails(map[string]any{"required": item.CostMedals})
		}

		inStock, err := catalog.DecrementStock(ctx, item.ID)
		if err != nil {
			return err
		}
		if !inStock {
			return pkgerrors.New(pkgerrors.CodeConflict, "exchange item is out of stock")
		}

		if err := repo.CreateTransaction(ctx, &models.MedalTransaction{
			UserID: userID,
			Type:   enums.MedalTransactionTypeSpend,
			Amount: item.CostMedals,
			ItemID: &item.ID,
		}); err != nil {
			return err
		}

		record := &models.ExchangeRecord{
			UserID:         userID,
			ExchangeItemID: item.ID,
			CostMedals:     item.CostMedals,
		}
		if err := catalog.CreateRecord(ctx, record); err != nil {
			return err
		}

		result = &ExchangeResult{
			RecordID:   record.ID,
			ItemID:     item.ID,
			ItemName:   item.Name,
			CostMedals: item.CostMedals,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateBalance(ctx, userID)
	return result, nil
}

func (s *service) History(ctx context.Context, userID uuid.UUID, limit int) ([]models.MedalTransaction, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.ListTransactions(ctx, userID, limit)
}

func (s *service) cachedBalance(ctx context.Context, userID uuid.UUID) *Balance {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cache.MedalBalanceKey(userID.String()))
	if err != nil {
		if err != goredis.Nil {
			s.logg.Warn(ctx, fmt.Sprintf("medal balance cache read failed: %v", err))
		}
		return nil
	}
	var balance Balance
	if err := json.Unmarshal([]byte(raw), &balance); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("medal balance cache decode failed: %v", err))
		return nil
	}
	return &balance
}

func (s *service) storeBalance(ctx context.Context, balance *Balance) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(balance)
	if err != nil {
		return
	}
	key := s.cache.MedalBalanceKey(balance.UserID.String())
	if err := s.cache.Set(ctx, key, string(raw), s.cacheTTL); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("medal balance cache write failed: %v", err))
	}
}

func (s *service) invalidateBalance(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, s.cache.MedalBalanceKey(userID.String())); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("medal balance cache invalidation failed: %v", err))
	}
}
