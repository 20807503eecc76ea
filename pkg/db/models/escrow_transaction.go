package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
)

// EscrowTransaction holds an order's funds pending admin release to the
// seller or refund to the buyer. 1:1 with its order; never re-opened.
type EscrowTransaction struct {
	ID             uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID          `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	BuyerID        uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null"`
	SellerID       uuid.UUID          `gorm:"column:seller_id;type:uuid;not null"`
	Amount         float64            `gorm:"column:amount;type:numeric(12,2);not null"`
	Status         enums.EscrowStatus `gorm:"column:status;type:text;not null;default:'held'"`
	ResolvedBy     *uuid.UUID         `gorm:"column:resolved_by;type:uuid"`
	ResolvedReason *string            `gorm:"column:resolved_reason"`
	ResolvedAt     *time.Time         `gorm:"column:resolved_at"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
