package enums

import "fmt"

// AgentType is the courier subtype an agent account is registered as.
type AgentType string

const (
	AgentTypeFastDelivery   AgentType = "fast_delivery"
	AgentTypePickupDelivery AgentType = "pickup_delivery"
	AgentTypeSiteManager    AgentType = "site_manager"
)

var validAgentTypes = []AgentType{
	AgentTypeFastDelivery,
	AgentTypePickupDelivery,
	AgentTypeSiteManager,
}

// String implements fmt.Stringer.
func (a AgentType) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AgentType.
func (a AgentType) IsValid() bool {
	for _, candidate := range validAgentTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAgentType converts raw input into an AgentType.
func ParseAgentType(value string) (AgentType, error) {
	for _, candidate := range validAgentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid agent type %q", value)
}

// AgentStatus tracks courier availability.
type AgentStatus string

const (
	AgentStatusAvailable AgentStatus = "available"
	AgentStatusBusy      AgentStatus = "busy"
	AgentStatusSuspended AgentStatus = "suspended"
)

var validAgentStatuses = []AgentStatus{
	AgentStatusAvailable,
	AgentStatusBusy,
	AgentStatusSuspended,
}

// String implements fmt.Stringer.
func (a AgentStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AgentStatus.
func (a AgentStatus) IsValid() bool {
	for _, candidate := range validAgentStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}
