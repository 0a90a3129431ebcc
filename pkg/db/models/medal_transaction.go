package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/koepon-app/koepon-backend/pkg/enums"
)

// MedalTransaction is an immutable ledger row for every medal credit or debit.
type MedalTransaction struct {
	ID        uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID                  `gorm:"column:user_id;type:uuid;not null;index"`
	Type      enums.MedalTransactionType `gorm:"column:type;type:medal_transaction_type_enum;not null"`
	Source    enums.MedalSource          `gorm:"column:source;type:medal_source_enum"`
	Amount    int64                      `gorm:"column:amount;not null"`
	VTuberID  *uuid.UUID                 `gorm:"column:vtuber_id;type:uuid"`
	ItemID    *uuid.UUID                 `gorm:"column:item_id;type:uuid"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime"`
}
