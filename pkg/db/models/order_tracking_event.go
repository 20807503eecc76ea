package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
)

// OrderTrackingEvent is an append-only record of each status transition.
type OrderTrackingEvent struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Notes       *string           `gorm:"column:notes"`
	Location    *string           `gorm:"column:location"`
	ActorUserID *uuid.UUID        `gorm:"column:actor_user_id;type:uuid"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
