package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/koepon-app/koepon-backend/pkg/enums"
)

// PaymentRecord mirrors a Stripe payment intent created for a draw.
type PaymentRecord struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	GachaID               uuid.UUID           `gorm:"column:gacha_id;type:uuid;not null"`
	StripePaymentIntentID string              `gorm:"column:stripe_payment_intent_id;not null;unique"`
	AmountYen             int64               `gorm:"column:amount_yen;not null"`
	Currency              enums.Currency      `gorm:"column:currency;not null;default:'jpy'"`
	DrawCount             int                 `gorm:"column:draw_count;not null"`
	Status                enums.PaymentStatus `gorm:"column:status;type:payment_status_enum;not null;default:'created'"`
	FailureReason         *string             `gorm:"column:failure_reason"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
