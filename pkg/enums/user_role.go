package enums

import "fmt"

// UserRole identifies what a user account is allowed to do on the platform.
type UserRole string

const (
	UserRoleBuyer       UserRole = "buyer"
	UserRoleSeller      UserRole = "seller"
	UserRoleAgent       UserRole = "agent"
	UserRoleSiteManager UserRole = "site_manager"
	UserRoleAdmin       UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleBuyer,
	UserRoleSeller,
	UserRoleAgent,
	UserRoleSiteManager,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// CanCreateOrders reports whether this role is allowed to place orders.
// Only buyers and pickup-site managers (manual walk-in orders) may.
func (u UserRole) CanCreateOrders() bool {
	return u == UserRoleBuyer || u == UserRoleSiteManager
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
