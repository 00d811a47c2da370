package enums

import "fmt"

// SaleState tracks the commercial record created once an order is delivered.
type SaleState string

const (
	SaleStateInProgress SaleState = "in_progress"
	SaleStateDelivered  SaleState = "delivered"
	SaleStateCancelled  SaleState = "cancelled"
)

var validSaleStates = []SaleState{
	SaleStateInProgress,
	SaleStateDelivered,
	SaleStateCancelled,
}

// String implements fmt.Stringer.
func (s SaleState) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleState.
func (s SaleState) IsValid() bool {
	for _, candidate := range validSaleStates {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleState converts raw input into a SaleState.
func ParseSaleState(value string) (SaleState, error) {
	for _, candidate := range validSaleStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale state %q", value)
}
