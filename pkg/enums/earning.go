package enums

import "fmt"

// EarningRole names the party an order commission share is allocated to.
type EarningRole string

const (
	EarningRoleFastDeliveryAgent   EarningRole = "fast_delivery_agent"
	EarningRolePickupDeliveryAgent EarningRole = "pickup_delivery_agent"
	EarningRoleSiteManager         EarningRole = "site_manager"
	EarningRoleReferralBuyer       EarningRole = "referral_buyer"
	EarningRolePlatform            EarningRole = "platform"
)

var validEarningRoles = []EarningRole{
	EarningRoleFastDeliveryAgent,
	EarningRolePickupDeliveryAgent,
	EarningRoleSiteManager,
	EarningRoleReferralBuyer,
	EarningRolePlatform,
}

// String implements fmt.Stringer.
func (e EarningRole) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EarningRole.
func (e EarningRole) IsValid() bool {
	for _, candidate := range validEarningRoles {
		if candidate == e {
			return true
		}
	}
	return false
}

// EarningStatus tracks a commission share from allocation to payout.
// Pending shares become payable when the order is delivered and paid when
// the buyer confirms completion. Cancellation before delivery reverses
// pending shares.
type EarningStatus string

const (
	EarningStatusPending  EarningStatus = "pending"
	EarningStatusPayable  EarningStatus = "payable"
	EarningStatusPaid     EarningStatus = "paid"
	EarningStatusReversed EarningStatus = "reversed"
)

var validEarningStatuses = []EarningStatus{
	EarningStatusPending,
	EarningStatusPayable,
	EarningStatusPaid,
	EarningStatusReversed,
}

// String implements fmt.Stringer.
func (e EarningStatus) String() string {
	return string(e)
}

// IsValid reports whether the value is a known EarningStatus.
func (e EarningStatus) IsValid() bool {
	for _, candidate := range validEarningStatuses {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseEarningStatus converts raw input into an EarningStatus.
func ParseEarningStatus(value string) (EarningStatus, error) {
	for _, candidate := range validEarningStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid earning status %q", value)
}
