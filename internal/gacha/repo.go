package gacha

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/koepon-app/koepon-backend/pkg/db/models"
)

// Repository manages persistence for gacha pools, draw results and payment claims.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListGachas(ctx context.Context, onlyActive bool) ([]models.Gacha, error)
	FindGacha(ctx context.Context, id uuid.UUID) (*models.Gacha, error)
	ClaimPayment(ctx context.Context, usage *models.PaymentUsage) error
	ReleasePayment(ctx context.Context, intentID string) error
	CreateDrawResult(ctx context.Context, result *models.DrawResult) error
	ListDrawResultsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.DrawResult, error)
	CountDraws(ctx context.Context) (int64, error)
	SumMedalsEarned(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gacha repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) ListGachas(ctx context.Context, onlyActive bool) ([]models.Gacha, error) {
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if onlyActive {
		query = query.Where("active = ?", true)
	}
	var gachas []models.Gacha
	if err := query.Find(&gachas).Error; err != nil {
		return nil, err
	}
	return gachas, nil
}

func (r *repository) FindGacha(ctx context.Context, id uuid.UUID) (*models.Gacha, error) {
	var gacha models.Gacha
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&gacha, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &gacha, nil
}

// ClaimPayment inserts the usage row that marks a payment intent as consumed.
// The unique index on the intent id makes concurrent claims lose with a
// unique violation.
func (r *repository) ClaimPayment(ctx context.Context, usage *models.PaymentUsage) error {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(usage).Error
}

func (r *repository) ReleasePayment(ctx context.Context, intentID string) error {
	return r.db.WithContext(ctx).
		Where("stripe_payment_intent_id = ?", intentID).
		Delete(&models.PaymentUsage{}).Error
}

func (r *repository) CreateDrawResult(ctx context.Context, result *models.DrawResult) error {
	return r.db.WithContext(ctx).Create(result).Error
}

func (r *repository) ListDrawResultsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.DrawResult, error) {
	query := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var results []models.DrawResult
	if err := query.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *repository) CountDraws(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.DrawResult{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repository) SumMedalsEarned(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.DrawResult{}).
		Select("COALESCE(SUM(medals_earned), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
