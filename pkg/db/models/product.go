package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
)

// Product is a sellable listing. UnitPrice is the seller's base
// (purchasing) price before the platform markup.
type Product struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID        uuid.UUID             `gorm:"column:seller_id;type:uuid;not null;index"`
	Name            string                `gorm:"column:name;not null"`
	Description     *string               `gorm:"column:description"`
	UnitPrice       float64               `gorm:"column:unit_price;type:numeric(12,2);not null"`
	MarketplaceType enums.MarketplaceType `gorm:"column:marketplace_type;type:text;not null;default:'physical'"`
	StockQty        int                   `gorm:"column:stock_qty;not null;default:0"`
	Active          bool                  `gorm:"column:active;not null;default:true"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
