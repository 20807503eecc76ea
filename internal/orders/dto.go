package orders

import (
	"github.com/google/uuid"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
)

// LineInput is one requested cart line on a new order.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// CreateInput carries everything needed to place an order. Actor fields
// come from the authenticated request context, not the request body.
type CreateInput struct {
	ActorID   uuid.UUID
	ActorRole enums.UserRole

	Items           []LineInput          `json:"items" validate:"required,min=1,dive"`
	DeliveryMethod  enums.DeliveryMethod `json:"delivery_method" validate:"required"`
	DeliveryAddress *string              `json:"delivery_address,omitempty"`
	PickupSiteID    *uuid.UUID           `json:"pickup_site_id,omitempty"`
	ReferralCode    *string              `json:"referral_code,omitempty"`
	ManualOrder     bool                 `json:"manual_order,omitempty"`
}

// CreateResult echoes the persisted order back to the client.
type CreateResult struct {
	OrderID     uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	TotalAmount float64           `json:"total_amount"`
	Status      enums.OrderStatus `json:"status"`
	BuyerID     uuid.UUID         `json:"buyer_id"`
	BuyerEmail  string            `json:"buyer_email"`
}

// TrackingInput moves an order along the lifecycle table.
type TrackingInput struct {
	ActorID   uuid.UUID
	ActorRole enums.UserRole

	Status   string  `json:"status" validate:"required"`
	Notes    *string `json:"notes,omitempty"`
	Location *string `json:"location,omitempty"`
}

// ConfirmDeliveryInput is the buyer's final sign-off on a delivered order.
type ConfirmDeliveryInput struct {
	ActorID uuid.UUID

	// Out-of-range ratings are clamped to [1,5] by the service rather
	// than rejected, so a stray client value never blocks the sign-off.
	Rating   *int    `json:"rating,omitempty"`
	Feedback *string `json:"feedback,omitempty"`
}

// CancelInput cancels a not-yet-delivered order.
type CancelInput struct {
	ActorID   uuid.UUID
	ActorRole enums.UserRole

	Reason *string `json:"reason,omitempty"`
}

// ReportIssueInput raises a delivery issue on an in-flight order.
type ReportIssueInput struct {
	ActorID uuid.UUID

	Description string `json:"description" validate:"required"`
}

// PaymentDecisionInput records the admin's call on a held payment.
type PaymentDecisionInput struct {
	AdminID uuid.UUID

	Approve bool    `json:"approve"`
	Notes   *string `json:"notes,omitempty"`
}

// ListInput pages a buyer's order history.
type ListInput struct {
	BuyerID uuid.UUID
	Status  *enums.OrderStatus
	Limit   int
	Cursor  string
}
