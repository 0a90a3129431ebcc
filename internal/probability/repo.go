package probability

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/koepon-app/koepon-backend/pkg/db/models"
)

// Repository manages a gacha's probability-weighted item set.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GachaExists(ctx context.Context, gachaID uuid.UUID) (bool, error)
	ListItems(ctx context.Context, gachaID uuid.UUID) ([]models.GachaItem, error)
	ReplaceItems(ctx context.Context, gachaID uuid.UUID, items []models.GachaItem) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a probability repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GachaExists(ctx context.Context, gachaID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Gacha{}).
		Where("id = ?", gachaID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListItems(ctx context.Context, gachaID uuid.UUID) ([]models.GachaItem, error) {
	var items []models.GachaItem
	if err := r.db.WithContext(ctx).
		Where("gacha_id = ?", gachaID).
		Order("probability DESC, name ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ReplaceItems swaps the gacha's whole item set. Callers run this inside a
// transaction so readers never observe a half-replaced set.
func (r *repository) ReplaceItems(ctx context.Context, gachaID uuid.UUID, items []models.GachaItem) error {
	if err := r.db.WithContext(ctx).
		Where("gacha_id = ?", gachaID).
		Delete(&models.GachaItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}
