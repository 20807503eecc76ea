package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
)

// AgentEarning is one allocated share of an order's platform margin. The
// platform share is recorded too (with a nil recipient) so summing an
// order's rows always reproduces the full margin.
type AgentEarning struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	RecipientUserID *uuid.UUID          `gorm:"column:recipient_user_id;type:uuid"`
	Role            enums.EarningRole   `gorm:"column:role;type:text;not null"`
	Amount          float64             `gorm:"column:amount;type:numeric(12,2);not null"`
	Status          enums.EarningStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	PayableAt       *time.Time          `gorm:"column:payable_at"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	ReversedAt      *time.Time          `gorm:"column:reversed_at"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
