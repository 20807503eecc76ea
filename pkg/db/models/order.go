package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
)

// Order is a purchase transaction. Money columns satisfy
// total_amount = base_amount + platform_margin + delivery_fee (2 dp).
// Orders are never physically deleted; cancellation is a status.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     string                `gorm:"column:order_number;not null;uniqueIndex"`
	BuyerID         uuid.UUID             `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID        uuid.UUID             `gorm:"column:seller_id;type:uuid;not null;index"`
	DeliveryAgentID *uuid.UUID            `gorm:"column:delivery_agent_id;type:uuid"`
	SiteManagerID   *uuid.UUID            `gorm:"column:site_manager_id;type:uuid"`
	PickupSiteID    *uuid.UUID            `gorm:"column:pickup_site_id;type:uuid"`
	MarketplaceType enums.MarketplaceType `gorm:"column:marketplace_type;type:text;not null"`
	DeliveryMethod  enums.DeliveryMethod  `gorm:"column:delivery_method;type:text;not null"`
	DeliveryAddress *string               `gorm:"column:delivery_address"`
	ReferralCode    *string               `gorm:"column:referral_code"`
	ManualOrder     bool                  `gorm:"column:manual_order;not null;default:false"`
	BaseAmount      float64               `gorm:"column:base_amount;type:numeric(12,2);not null"`
	PlatformMargin  float64               `gorm:"column:platform_margin;type:numeric(12,2);not null"`
	DeliveryFee     float64               `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	TotalAmount     float64               `gorm:"column:total_amount;type:numeric(12,2);not null"`
	SellerPayout    float64               `gorm:"column:seller_payout;type:numeric(12,2);not null"`
	Status          enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	Rating          *int                  `gorm:"column:rating"`
	AssignedAt      *time.Time            `gorm:"column:assigned_at"`
	PickedUpAt      *time.Time            `gorm:"column:picked_up_at"`
	DeliveredAt     *time.Time            `gorm:"column:delivered_at"`
	CompletedAt     *time.Time            `gorm:"column:completed_at"`
	CancelledAt     *time.Time            `gorm:"column:cancelled_at"`
	Items           []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TrackingEvents  []OrderTrackingEvent  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
