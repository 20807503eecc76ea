package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem snapshots one cart line at order-creation time. Immutable after
// insert outside of admin corrections.
type OrderItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name      string    `gorm:"column:name;not null"`
	UnitPrice float64   `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int       `gorm:"column:quantity;not null"`
	LineTotal float64   `gorm:"column:line_total;type:numeric(12,2);not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
