package models

import (
	"time"

	"github.com/google/uuid"
)

// MedalBalance is the per-user medal wallet. Invariant: available ≤ total.
type MedalBalance struct {
	UserID          uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	TotalMedals     int64     `gorm:"column:total_medals;not null;default:0"`
	AvailableMedals int64     `gorm:"column:available_medals;not null;default:0"`
	LockedMedals    int64     `gorm:"column:locked_medals;not null;default:0"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
