package commission

import (
	"github.com/shopspring/decimal"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

// Markup is the fixed platform markup applied to every purchasing price.
const Markup = "1.21"

var (
	markupRate          = decimal.RequireFromString(Markup)
	fastDeliveryShare   = decimal.RequireFromString("0.50")
	pickupDeliveryShare = decimal.RequireFromString("0.70")
	siteManagerShare    = decimal.RequireFromString("0.15")
	referralShare       = decimal.RequireFromString("0.15")
)

// Breakdown allocates the platform profit of one order among the parties
// that participated in it. All amounts are rounded to 2 decimal places and
// FastDeliveryAgent + PickupDeliveryAgent + SiteManager + ReferralBuyer +
// Platform always equals PlatformProfit exactly.
type Breakdown struct {
	SellingPrice        float64 `json:"selling_price"`
	PlatformProfit      float64 `json:"platform_profit"`
	FastDeliveryAgent   float64 `json:"fast_delivery_agent"`
	PickupDeliveryAgent float64 `json:"pickup_delivery_agent"`
	SiteManager         float64 `json:"site_manager"`
	ReferralBuyer       float64 `json:"referral_buyer"`
	Platform            float64 `json:"platform_commission"`
}

// Input captures the order facts the calculator needs.
type Input struct {
	PurchasingPrice  float64
	OrderType        enums.MarketplaceType
	HasReferral      bool
	HasPSM           bool
	HasDeliveryAgent bool
}

// Calculate computes the commission breakdown for an order.
//
// Local-market orders give the fast-delivery agent 50% of the platform
// profit; physical-product orders give the pickup-delivery agent 70%. A
// participating site manager takes 15%, a referral chain takes 15%, and
// the platform keeps whatever is left, including the share of any role
// that did not participate.
//
// Local-market orders without a referral keep the agent share pinned at
// exactly 50% with the platform absorbing the full remainder. That is a
// long-standing billing quirk downstream settlement relies on; do not
// normalize it into a generic rate table.
func Calculate(input Input) (Breakdown, error) {
	if input.PurchasingPrice <= 0 {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "purchasing price must be positive")
	}
	if !input.OrderType.IsValid() {
		return Breakdown{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown marketplace type")
	}

	purchasing := decimal.NewFromFloat(input.PurchasingPrice)
	selling := purchasing.Mul(markupRate).Round(2)
	profit := selling.Sub(purchasing).Round(2)

	var fastDelivery, pickupDelivery, siteManager, referral decimal.Decimal

	if input.HasDeliveryAgent {
		switch input.OrderType {
		case enums.MarketplaceTypeLocal:
			fastDelivery = profit.Mul(fastDeliveryShare).Round(2)
		case enums.MarketplaceTypePhysical:
			pickupDelivery = profit.Mul(pickupDeliveryShare).Round(2)
		}
	}
	if input.HasPSM {
		siteManager = profit.Mul(siteManagerShare).Round(2)
	}
	if input.HasReferral {
		referral = profit.Mul(referralShare).Round(2)
	}

	if input.OrderType == enums.MarketplaceTypeLocal && input.HasDeliveryAgent && !input.HasReferral {
		// Re-derive the agent share at exactly half of profit; the platform
		// absorbs the remainder instead of applying the 15%/15% defaults.
		fastDelivery = profit.Mul(fastDeliveryShare).Round(2)
	}

	platform := profit.Sub(fastDelivery).Sub(pickupDelivery).Sub(siteManager).Sub(referral)

	return Breakdown{
		SellingPrice:        selling.InexactFloat64(),
		PlatformProfit:      profit.InexactFloat64(),
		FastDeliveryAgent:   fastDelivery.InexactFloat64(),
		PickupDeliveryAgent: pickupDelivery.InexactFloat64(),
		SiteManager:         siteManager.InexactFloat64(),
		ReferralBuyer:       referral.InexactFloat64(),
		Platform:            platform.InexactFloat64(),
	}, nil
}

// AllocatedTotal sums every share including the platform remainder.
func (b Breakdown) AllocatedTotal() float64 {
	total := decimal.NewFromFloat(b.FastDeliveryAgent).
		Add(decimal.NewFromFloat(b.PickupDeliveryAgent)).
		Add(decimal.NewFromFloat(b.SiteManager)).
		Add(decimal.NewFromFloat(b.ReferralBuyer)).
		Add(decimal.NewFromFloat(b.Platform))
	return total.InexactFloat64()
}
