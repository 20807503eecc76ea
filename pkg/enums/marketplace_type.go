package enums

import "fmt"

// MarketplaceType distinguishes grocery-like local-market orders, served by
// fast-delivery couriers, from physical-product orders routed through a
// pickup site.
type MarketplaceType string

const (
	MarketplaceTypeLocal    MarketplaceType = "local"
	MarketplaceTypePhysical MarketplaceType = "physical"
)

var validMarketplaceTypes = []MarketplaceType{
	MarketplaceTypeLocal,
	MarketplaceTypePhysical,
}

// String implements fmt.Stringer.
func (m MarketplaceType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MarketplaceType.
func (m MarketplaceType) IsValid() bool {
	for _, candidate := range validMarketplaceTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMarketplaceType converts raw input into a MarketplaceType.
func ParseMarketplaceType(value string) (MarketplaceType, error) {
	for _, candidate := range validMarketplaceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid marketplace type %q", value)
}
