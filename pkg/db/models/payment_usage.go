package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentUsage claims a payment intent for exactly one draw. The unique
// constraint on the intent id is the atomic guard against duplicate reward
// issuance for the same payment.
type PaymentUsage struct {
	ID                    uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	StripePaymentIntentID string    `gorm:"column:stripe_payment_intent_id;not null;uniqueIndex:idx_payment_usages_intent"`
	UserID                uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	CreatedAt             time.Time `gorm:"column:created_at;autoCreateTime"`
}
