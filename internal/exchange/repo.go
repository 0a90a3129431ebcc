package exchange

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/koepon-app/koepon-backend/pkg/db/models"
)

// Repository manages persistence for the exchange catalog and records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindItem(ctx context.Context, id uuid.UUID) (*models.ExchangeItem, error)
	ListItems(ctx context.Context, onlyActive bool) ([]models.ExchangeItem, error)
	DecrementStock(ctx context.Context, id uuid.UUID) (bool, error)
	CreateRecord(ctx context.Context, record *models.ExchangeRecord) error
	ListRecordsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ExchangeRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an exchange repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindItem(ctx context.Context, id uuid.UUID) (*models.ExchangeItem, error) {
	var item models.ExchangeItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListItems(ctx context.Context, onlyActive bool) ([]models.ExchangeItem, error) {
	query := r.db.WithContext(ctx).Order("cost_medals ASC")
	if onlyActive {
		query = query.Where("active = ?", true)
	}
	var items []models.ExchangeItem
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// DecrementStock consumes one unit of limited stock. Items with NULL stock are
// unlimited and always succeed.
func (r *repository) DecrementStock(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ExchangeItem{}).
		Where("id = ? AND (stock IS NULL OR stock > 0)", id).
		Update("stock", gorm.Expr("CASE WHEN stock IS NULL THEN NULL ELSE stock - 1 END"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateRecord(ctx context.Context, record *models.ExchangeRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) ListRecordsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.ExchangeRecord, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var records []models.ExchangeRecord
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
