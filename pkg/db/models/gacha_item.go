package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/koepon-app/koepon-backend/pkg/enums"
)

// GachaItem is one awardable item in a gacha pool. Probability is a percentage
// with three decimal places; the per-gacha sum is validated against 100%.
type GachaItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GachaID     uuid.UUID       `gorm:"column:gacha_id;type:uuid;not null;uniqueIndex:idx_gacha_items_gacha_name,priority:1"`
	Name        string          `gorm:"column:name;not null;uniqueIndex:idx_gacha_items_gacha_name,priority:2"`
	Rarity      enums.Rarity    `gorm:"column:rarity;type:rarity_enum;not null"`
	Probability decimal.Decimal `gorm:"column:probability;type:numeric(6,3);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
