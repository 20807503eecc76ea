package commission

import (
	"math"
	"testing"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

const tolerance = 0.01

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestCalculate_PhysicalOrderWithPickupAgent(t *testing.T) {
	got, err := Calculate(Input{
		PurchasingPrice:  100,
		OrderType:        enums.MarketplaceTypePhysical,
		HasDeliveryAgent: true,
	})
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}

	if got.SellingPrice != 121.00 {
		t.Errorf("selling price = %v, want 121.00", got.SellingPrice)
	}
	if got.PlatformProfit != 21.00 {
		t.Errorf("platform profit = %v, want 21.00", got.PlatformProfit)
	}
	if got.PickupDeliveryAgent != 14.70 {
		t.Errorf("pickup delivery agent = %v, want 14.70", got.PickupDeliveryAgent)
	}
	if got.Platform != 6.30 {
		t.Errorf("platform commission = %v, want 6.30", got.Platform)
	}
	if got.FastDeliveryAgent != 0 || got.SiteManager != 0 || got.ReferralBuyer != 0 {
		t.Errorf("unexpected extra shares: %+v", got)
	}
	if !almostEqual(got.AllocatedTotal(), 21.00) {
		t.Errorf("allocated total = %v, want 21.00", got.AllocatedTotal())
	}
}

func TestCalculate_LocalOrderWithAgentAndReferral(t *testing.T) {
	got, err := Calculate(Input{
		PurchasingPrice:  200,
		OrderType:        enums.MarketplaceTypeLocal,
		HasDeliveryAgent: true,
		HasReferral:      true,
	})
	if err != nil {
		t.Fatalf("Calculate error: %v", err)
	}

	if got.SellingPrice != 242.00 {
		t.Errorf("selling price = %v, want 242.00", got.SellingPrice)
	}
	if got.PlatformProfit != 42.00 {
		t.Errorf("platform profit = %v, want 42.00", got.PlatformProfit)
	}
	if got.FastDeliveryAgent != 21.00 {
		t.Errorf("fast delivery agent = %v, want 21.00", got.FastDeliveryAgent)
	}
	if got.ReferralBuyer != 6.30 {
		t.Errorf("referral buyer = %v, want 6.30", got.ReferralBuyer)
	}
	if got.Platform != 14.70 {
		t.Errorf("platform commission = %v, want 14.70", got.Platform)
	}
	if !almostEqual(got.AllocatedTotal(), 42.00) {
		t.Errorf("allocated total = %v, want 42.00", got.AllocatedTotal())
	}
}

// The fast-delivery share on a local order without a referral must be
// exactly half of profit, never the 15% default.
func TestCalculate_LocalNoReferralAgentShareIsHalf(t *testing.T) {
	for _, price := range []float64{10, 99.99, 250, 1234.56} {
		got, err := Calculate(Input{
			PurchasingPrice:  price,
			OrderType:        enums.MarketplaceTypeLocal,
			HasDeliveryAgent: true,
		})
		if err != nil {
			t.Fatalf("Calculate(%v) error: %v", price, err)
		}
		wantAgent := math.Round(got.PlatformProfit*50) / 100
		if !almostEqual(got.FastDeliveryAgent, wantAgent) {
			t.Errorf("price %v: fast delivery agent = %v, want %v (50%% of %v)",
				price, got.FastDeliveryAgent, wantAgent, got.PlatformProfit)
		}
	}
}

func TestCalculate_AllFlagCombinations(t *testing.T) {
	prices := []float64{1, 37.43, 100, 999.95, 15000}
	orderTypes := []enums.MarketplaceType{enums.MarketplaceTypeLocal, enums.MarketplaceTypePhysical}
	bools := []bool{false, true}

	for _, price := range prices {
		for _, orderType := range orderTypes {
			for _, hasReferral := range bools {
				for _, hasPSM := range bools {
					for _, hasAgent := range bools {
						got, err := Calculate(Input{
							PurchasingPrice:  price,
							OrderType:        orderType,
							HasReferral:      hasReferral,
							HasPSM:           hasPSM,
							HasDeliveryAgent: hasAgent,
						})
						if err != nil {
							t.Fatalf("Calculate(%v %v r=%v p=%v a=%v): %v",
								price, orderType, hasReferral, hasPSM, hasAgent, err)
						}

						if !almostEqual(got.AllocatedTotal(), got.PlatformProfit) {
							t.Errorf("%v %v r=%v p=%v a=%v: allocated %v != profit %v",
								price, orderType, hasReferral, hasPSM, hasAgent,
								got.AllocatedTotal(), got.PlatformProfit)
						}
						wantSelling := math.Round(price*121) / 100
						if !almostEqual(got.SellingPrice, wantSelling) {
							t.Errorf("selling price = %v, want %v", got.SellingPrice, wantSelling)
						}
						if got.Platform < -tolerance {
							t.Errorf("platform commission went negative: %+v", got)
						}
						if !hasAgent && (got.FastDeliveryAgent != 0 || got.PickupDeliveryAgent != 0) {
							t.Errorf("agent share allocated without agent: %+v", got)
						}
						if !hasPSM && got.SiteManager != 0 {
							t.Errorf("site manager share allocated without PSM: %+v", got)
						}
						if !hasReferral && got.ReferralBuyer != 0 {
							t.Errorf("referral share allocated without referral: %+v", got)
						}
					}
				}
			}
		}
	}
}

func TestCalculate_RejectsBadInput(t *testing.T) {
	if _, err := Calculate(Input{PurchasingPrice: 0, OrderType: enums.MarketplaceTypeLocal}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Errorf("zero price: got %v, want validation error", err)
	}
	if _, err := Calculate(Input{PurchasingPrice: -5, OrderType: enums.MarketplaceTypeLocal}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Errorf("negative price: got %v, want validation error", err)
	}
	if _, err := Calculate(Input{PurchasingPrice: 10, OrderType: enums.MarketplaceType("bulk")}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Errorf("unknown order type: got %v, want validation error", err)
	}
}
