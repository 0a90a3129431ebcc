package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/koepon-app/koepon-backend/pkg/enums"
)

// DrawResultItem is one awarded item within a draw result. Position preserves
// the order items were drawn in.
type DrawResultItem struct {
	ID           uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DrawResultID uuid.UUID    `gorm:"column:draw_result_id;type:uuid;not null;index"`
	GachaItemID  uuid.UUID    `gorm:"column:gacha_item_id;type:uuid;not null"`
	Name         string       `gorm:"column:name;not null"`
	Rarity       enums.Rarity `gorm:"column:rarity;type:rarity_enum;not null"`
	Position     int          `gorm:"column:position;not null"`
	CreatedAt    time.Time    `gorm:"column:created_at;autoCreateTime"`
}
