package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
)

// Agent is the courier/site-manager subtype record attached to a user.
// Orders reference agents but never own them.
type Agent struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID         uuid.UUID         `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Type           enums.AgentType   `gorm:"column:type;type:text;not null"`
	Status         enums.AgentStatus `gorm:"column:status;type:text;not null;default:'available'"`
	CurrentOrders  int               `gorm:"column:current_orders;not null;default:0"`
	MaxOrders      int               `gorm:"column:max_orders;not null;default:5"`
	Latitude       *float64          `gorm:"column:latitude"`
	Longitude      *float64          `gorm:"column:longitude"`
	TotalEarnings  float64           `gorm:"column:total_earnings;type:numeric(14,2);not null;default:0"`
	RatingSum      int               `gorm:"column:rating_sum;not null;default:0"`
	RatingCount    int               `gorm:"column:rating_count;not null;default:0"`
	DeliveredCount int               `gorm:"column:delivered_count;not null;default:0"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// AverageRating derives the star rating from the accumulated sums.
func (a Agent) AverageRating() float64 {
	if a.RatingCount == 0 {
		return 0
	}
	return float64(a.RatingSum) / float64(a.RatingCount)
}
