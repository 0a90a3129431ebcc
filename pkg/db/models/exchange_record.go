package models

import (
	"time"

	"github.com/google/uuid"
)

// ExchangeRecord captures one medal-for-item exchange.
type ExchangeRecord struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	ExchangeItemID uuid.UUID `gorm:"column:exchange_item_id;type:uuid;not null"`
	CostMedals     int64     `gorm:"column:cost_medals;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
