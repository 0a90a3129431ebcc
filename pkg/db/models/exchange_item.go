package models

import (
	"time"

	"github.com/google/uuid"
)

// ExchangeItem is a reward purchasable with medals.
type ExchangeItem struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VTuberID    *uuid.UUID `gorm:"column:vtuber_id;type:uuid"`
	Name        string     `gorm:"column:name;not null"`
	Description string     `gorm:"column:description"`
	CostMedals  int64      `gorm:"column:cost_medals;not null"`
	Stock       *int       `gorm:"column:stock"`
	Active      bool       `gorm:"column:active;not null;default:true"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
