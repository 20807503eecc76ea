package models

import (
	"time"

	"github.com/google/uuid"
)

// PickupSite is a physical drop-off/collection point run by a site manager.
type PickupSite struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ManagerID     uuid.UUID `gorm:"column:manager_id;type:uuid;not null;index"`
	Name          string    `gorm:"column:name;not null"`
	Address       string    `gorm:"column:address;not null"`
	Latitude      *float64  `gorm:"column:latitude"`
	Longitude     *float64  `gorm:"column:longitude"`
	Active        bool      `gorm:"column:active;not null;default:true"`
	CurrentOrders int       `gorm:"column:current_orders;not null;default:0"`
	MaxCapacity   int       `gorm:"column:max_capacity;not null;default:50"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// HasCapacity reports whether the site can take one more order.
func (p PickupSite) HasCapacity() bool {
	return p.Active && p.CurrentOrders < p.MaxCapacity
}
