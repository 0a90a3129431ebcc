package models

import (
	"time"

	"github.com/google/uuid"
)

// DrawResult is the immutable record of one completed draw. Draws are paid via
// Stripe only; medals are a reward side effect, so the record carries
// MedalsEarned and deliberately has no spent/used medal column.
type DrawResult struct {
	ID                    uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID                uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	GachaID               uuid.UUID `gorm:"column:gacha_id;type:uuid;not null"`
	DrawCount             int       `gorm:"column:draw_count;not null"`
	MedalsEarned          int64     `gorm:"column:medals_earned;not null"`
	StripePaymentIntentID string    `gorm:"column:stripe_payment_intent_id;not null"`
	AmountYen             int64     `gorm:"column:amount_yen;not null"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`

	Items []DrawResultItem `gorm:"foreignKey:DrawResultID"`
}
