package enums

import "fmt"

// OfferVisibility segments stock lots per storefront channel.
type OfferVisibility string

const (
	OfferVisibilityNormal OfferVisibility = "NORMAL"
	OfferVisibilityOutlet OfferVisibility = "OUTLET"
)

var validOfferVisibilities = []OfferVisibility{
	OfferVisibilityNormal,
	OfferVisibilityOutlet,
}

// IsValid reports whether the value matches the canonical offer visibility enum.
func (o OfferVisibility) IsValid() bool {
	for _, candidate := range validOfferVisibilities {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOfferVisibility converts the raw string to OfferVisibility.
func ParseOfferVisibility(value string) (OfferVisibility, error) {
	for _, candidate := range validOfferVisibilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid offer visibility %q", value)
}

// AllocationStatus tracks the reservation lifecycle of one order line against
// one stock lot.
type AllocationStatus string

const (
	AllocationStatusReserved AllocationStatus = "reserved"
	AllocationStatusCaptured AllocationStatus = "captured"
	AllocationStatusReleased AllocationStatus = "released"
)

var validAllocationStatuses = []AllocationStatus{
	AllocationStatusReserved,
	AllocationStatusCaptured,
	AllocationStatusReleased,
}

// IsValid reports whether the value matches the canonical allocation status enum.
func (a AllocationStatus) IsValid() bool {
	for _, candidate := range validAllocationStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}
