package medals

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/koepon-app/koepon-backend/pkg/db/models"
)

// Repository manages persistence for medal balances and the medal ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBalance(ctx context.Context, userID uuid.UUID) (*models.MedalBalance, error)
	ListVTuberBalances(ctx context.Context, userID uuid.UUID) ([]models.VTuberMedalBalance, error)
	Credit(ctx context.Context, userID uuid.UUID, amount int64) error
	CreditVTuber(ctx context.Context, userID, vtuberID uuid.UUID, amount int64) error
	Debit(ctx context.Context, userID uuid.UUID, amount int64) (bool, error)
	CreateTransaction(ctx context.Context, txn *models.MedalTransaction) error
	ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.MedalTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a medals repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBalance(ctx context.Context, userID uuid.UUID) (*models.MedalBalance, error) {
	var balance models.MedalBalance
	if err := r.db.WithContext(ctx).First(&balance, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repository) ListVTuberBalances(ctx context.Context, userID uuid.UUID) ([]models.VTuberMedalBalance, error) {
	var balances []models.VTuberMedalBalance
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("vtuber_id ASC").
		Find(&balances).Error; err != nil {
		return nil, err
	}
	return balances, nil
}

// Credit adds to total and available together. The wallet row is created on
// first credit.
func (r *repository) Credit(ctx context.Context, userID uuid.UUID, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.MedalBalance{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"total_medals":     gorm.Expr("total_medals + ?", amount),
			"available_medals": gorm.Expr("available_medals + ?", amount),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.MedalBalance{
		UserID:          userID,
		TotalMedals:     amount,
		AvailableMedals: amount,
	}).Error
}

func (r *repository) CreditVTuber(ctx context.Context, userID, vtuberID uuid.UUID, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.VTuberMedalBalance{}).
		Where("user_id = ? AND vtuber_id = ?", userID, vtuberID).
		Update("medals", gorm.Expr("medals + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&models.VTuberMedalBalance{
		UserID:   userID,
		VTuberID: vtuberID,
		Medals:   amount,
	}).Error
}

// Debit subtracts from total and available in one conditional UPDATE. A false
// return means the available balance was below the requested amount and
// nothing changed.
func (r *repository) Debit(ctx context.Context, userID uuid.UUID, amount int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.MedalBalance{}).
		Where("user_id = ? AND available_medals >= ?", userID, amount).
		Updates(map[string]any{
			"total_medals":     gorm.Expr("total_medals - ?", amount),
			"available_medals": gorm.Expr("available_medals - ?", amount),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.MedalTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.MedalTransaction, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var txns []models.MedalTransaction
	if err := query.Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}
