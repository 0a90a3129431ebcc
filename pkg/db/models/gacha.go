package models

import (
	"time"

	"github.com/google/uuid"
)

// Gacha is a draw pool tied to one VTuber.
type Gacha struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VTuberID    uuid.UUID  `gorm:"column:vtuber_id;type:uuid;not null;index"`
	Name        string     `gorm:"column:name;not null"`
	Description string     `gorm:"column:description"`
	Active      bool       `gorm:"column:active;not null;default:true"`
	StartsAt    *time.Time `gorm:"column:starts_at"`
	EndsAt      *time.Time `gorm:"column:ends_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`

	Items []GachaItem `gorm:"foreignKey:GachaID"`
}
