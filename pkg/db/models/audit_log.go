package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditLog records admin-triggered money movements and other sensitive
// actions. Append-only.
type AuditLog struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ActorUserID uuid.UUID       `gorm:"column:actor_user_id;type:uuid;not null;index"`
	Action      string          `gorm:"column:action;not null"`
	EntityType  string          `gorm:"column:entity_type;not null"`
	EntityID    uuid.UUID       `gorm:"column:entity_id;type:uuid;not null"`
	Detail      json.RawMessage `gorm:"column:detail;type:jsonb"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
