package models

import (
	"time"

	"github.com/google/uuid"
)

// VTuberMedalBalance is the per-user, per-VTuber medal sub-balance.
type VTuberMedalBalance struct {
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	VTuberID  uuid.UUID `gorm:"column:vtuber_id;type:uuid;primaryKey"`
	Medals    int64     `gorm:"column:medals;not null;default:0"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (VTuberMedalBalance) TableName() string {
	return "vtuber_medal_balances"
}
