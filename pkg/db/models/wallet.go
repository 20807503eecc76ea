package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is the denormalized running balance for a user. Every balance
// change is mirrored by a WalletTransaction row in the same database
// transaction.
type Wallet struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Balance   float64   `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
