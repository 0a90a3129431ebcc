package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/koepon-app/koepon-backend/pkg/db/models"
	"github.com/koepon-app/koepon-backend/pkg/enums"
)

// Repository manages persistence for payment records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.PaymentRecord) error
	FindByIntentID(ctx context.Context, intentID string) (*models.PaymentRecord, error)
	UpdateStatus(ctx context.Context, intentID string, status enums.PaymentStatus, failureReason *string) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.PaymentRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindByIntentID(ctx context.Context, intentID string) (*models.PaymentRecord, error) {
	var record models.PaymentRecord
	if err := r.db.WithContext(ctx).
		Where("stripe_payment_intent_id = ?", intentID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) UpdateStatus(ctx context.Context, intentID string, status enums.PaymentStatus, failureReason *string) error {
	updates := map[string]any{"status": status}
	if failureReason != nil {
		updates["failure_reason"] = *failureReason
	}
	return r.db.WithContext(ctx).
		Model(&models.PaymentRecord{}).
		Where("stripe_payment_intent_id = ?", intentID).
		Updates(updates).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.PaymentRecord, error) {
	var records []models.PaymentRecord
	query := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
