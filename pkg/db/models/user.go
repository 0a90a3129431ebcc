package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/koepon-app/koepon-backend/pkg/enums"
)

// User is an account that can pay for draws and hold a medal balance.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string         `gorm:"column:email;not null;unique"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	DisplayName  string         `gorm:"column:display_name;not null"`
	Role         enums.UserRole `gorm:"column:role;type:user_role_enum;not null;default:'player'"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
