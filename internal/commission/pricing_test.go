package commission

import (
	"context"
	"errors"
	"testing"

	"github.com/sokonihq/sokoni-backend/pkg/enums"
	pkgerrors "github.com/sokonihq/sokoni-backend/pkg/errors"
)

type fakeFeeSettings struct {
	fee float64
	err error
}

func (f *fakeFeeSettings) DeliveryFee(ctx context.Context, method enums.DeliveryMethod) (float64, error) {
	return f.fee, f.err
}

func TestCalculateBuyerPrice_BuyerOrderAbsorbsFee(t *testing.T) {
	svc, err := NewPricingService(&fakeFeeSettings{fee: 3000})
	if err != nil {
		t.Fatalf("NewPricingService: %v", err)
	}

	quote, err := svc.CalculateBuyerPrice(context.Background(), 100, enums.DeliveryMethodHome, enums.MarketplaceTypeLocal, false)
	if err != nil {
		t.Fatalf("CalculateBuyerPrice: %v", err)
	}

	if quote.FinalPrice != 3121.00 {
		t.Errorf("final price = %v, want 3121.00", quote.FinalPrice)
	}
	if quote.DeliveryFee != 3000.00 {
		t.Errorf("delivery fee = %v, want 3000.00", quote.DeliveryFee)
	}
	if quote.DisplayedDeliveryFee != 0 {
		t.Errorf("displayed fee = %v, want 0 for ordinary buyer order", quote.DisplayedDeliveryFee)
	}
	if quote.PlatformMargin != 21.00 {
		t.Errorf("platform margin = %v, want 21.00", quote.PlatformMargin)
	}
	if quote.SellerPayout != 100.00 {
		t.Errorf("seller payout = %v, want 100.00", quote.SellerPayout)
	}
}

func TestCalculateBuyerPrice_ManualOrderSurfacesFee(t *testing.T) {
	svc, _ := NewPricingService(&fakeFeeSettings{fee: 1500})

	quote, err := svc.CalculateBuyerPrice(context.Background(), 250, enums.DeliveryMethodPickup, enums.MarketplaceTypePhysical, true)
	if err != nil {
		t.Fatalf("CalculateBuyerPrice: %v", err)
	}
	if quote.DisplayedDeliveryFee != 1500.00 {
		t.Errorf("displayed fee = %v, want 1500.00 for manual order", quote.DisplayedDeliveryFee)
	}
	if quote.FinalPrice != 302.50+1500 {
		t.Errorf("final price = %v, want 1802.50", quote.FinalPrice)
	}
}

func TestCalculateBuyerPrice_InvariantHolds(t *testing.T) {
	svc, _ := NewPricingService(&fakeFeeSettings{fee: 42.35})

	for _, base := range []float64{0.01, 9.99, 120, 4999.95} {
		quote, err := svc.CalculateBuyerPrice(context.Background(), base, enums.DeliveryMethodHome, enums.MarketplaceTypeLocal, false)
		if err != nil {
			t.Fatalf("CalculateBuyerPrice(%v): %v", base, err)
		}
		sum := quote.SellerPayout + quote.PlatformMargin + quote.DeliveryFee
		if diff := quote.FinalPrice - sum; diff > 0.01 || diff < -0.01 {
			t.Errorf("base %v: final %v != payout+margin+fee %v", base, quote.FinalPrice, sum)
		}
		if quote.SellerPayout < base-0.01 {
			t.Errorf("base %v: seller payout %v fell below base", base, quote.SellerPayout)
		}
		if quote.PlatformMargin < 0 {
			t.Errorf("base %v: negative platform margin %v", base, quote.PlatformMargin)
		}
	}
}

func TestCalculateBuyerPrice_FeeStoreFailure(t *testing.T) {
	svc, _ := NewPricingService(&fakeFeeSettings{err: errors.New("settings down")})

	_, err := svc.CalculateBuyerPrice(context.Background(), 100, enums.DeliveryMethodHome, enums.MarketplaceTypeLocal, false)
	if !pkgerrors.Is(err, pkgerrors.CodeDependency) {
		t.Errorf("got %v, want dependency error", err)
	}
}

func TestCalculateBuyerPrice_Validation(t *testing.T) {
	svc, _ := NewPricingService(&fakeFeeSettings{})

	if _, err := svc.CalculateBuyerPrice(context.Background(), 0, enums.DeliveryMethodHome, enums.MarketplaceTypeLocal, false); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Errorf("zero base: got %v, want validation error", err)
	}
	if _, err := svc.CalculateBuyerPrice(context.Background(), 10, enums.DeliveryMethod("drone"), enums.MarketplaceTypeLocal, false); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Errorf("bad method: got %v, want validation error", err)
	}
}
