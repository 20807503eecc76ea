package commission

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

// FeeSettings resolves the admin-configured delivery fee for a delivery
// method. Backed by the platform_settings table in production.
type FeeSettings interface {
	DeliveryFee(ctx context.Context, method enums.DeliveryMethod) (float64, error)
}

// Quote is the buyer-facing price computed for an order. DeliveryFee is
// the real fee that gets persisted (FinalPrice = SellerPayout +
// PlatformMargin + DeliveryFee); DisplayedDeliveryFee is what the client
// shows and is zero when the fee is absorbed for the "free delivery"
// marketing policy.
type Quote struct {
	FinalPrice           float64 `json:"final_price"`
	DeliveryFee          float64 `json:"delivery_fee"`
	DisplayedDeliveryFee float64 `json:"displayed_delivery_fee"`
	PlatformMargin       float64 `json:"platform_margin"`
	SellerPayout         float64 `json:"seller_payout"`
}

// PricingService wraps the commission calculator to produce the buyer
// price, delivery fee, platform margin and seller payout for an order.
type PricingService struct {
	fees FeeSettings
}

// NewPricingService wires the pricing service with a fee settings store.
func NewPricingService(fees FeeSettings) (*PricingService, error) {
	if fees == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fee settings store required")
	}
	return &PricingService{fees: fees}, nil
}

// CalculateBuyerPrice prices an order from the seller's base price.
//
// Ordinary buyer orders absorb the delivery fee into the displayed total
// ("free delivery"); manual orders created at a pickup site surface the
// real fee. The seller payout is always the base price and the platform
// margin is never negative.
func (s *PricingService) CalculateBuyerPrice(
	ctx context.Context,
	basePrice float64,
	deliveryMethod enums.DeliveryMethod,
	marketplaceType enums.MarketplaceType,
	manualOrder bool,
) (Quote, error) {
	if basePrice <= 0 {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "base price must be positive")
	}
	if !deliveryMethod.IsValid() {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery method")
	}
	if !marketplaceType.IsValid() {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown marketplace type")
	}

	fee, err := s.fees.DeliveryFee(ctx, deliveryMethod)
	if err != nil {
		return Quote{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve delivery fee")
	}
	if fee < 0 {
		fee = 0
	}

	base := decimal.NewFromFloat(basePrice)
	selling := base.Mul(markupRate).Round(2)
	margin := selling.Sub(base).Round(2)
	feeDec := decimal.NewFromFloat(fee).Round(2)
	final := selling.Add(feeDec).Round(2)

	quote := Quote{
		FinalPrice:     final.InexactFloat64(),
		DeliveryFee:    feeDec.InexactFloat64(),
		PlatformMargin: margin.InexactFloat64(),
		SellerPayout:   base.Round(2).InexactFloat64(),
	}
	if manualOrder {
		quote.DisplayedDeliveryFee = quote.DeliveryFee
	} else {
		// Marketing shows "free delivery" to ordinary buyers; the fee is
		// folded into the displayed total instead of itemized.
		quote.DisplayedDeliveryFee = 0
	}
	return quote, nil
}
