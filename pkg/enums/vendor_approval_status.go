package enums

import "fmt"

// VendorApprovalStatus tracks admin review of a vendor shop.
type VendorApprovalStatus string

const (
	VendorApprovalStatusPending  VendorApprovalStatus = "pending"
	VendorApprovalStatusApproved VendorApprovalStatus = "approved"
	VendorApprovalStatusRejected VendorApprovalStatus = "rejected"
)

var validVendorApprovalStatuses = []VendorApprovalStatus{
	VendorApprovalStatusPending,
	VendorApprovalStatusApproved,
	VendorApprovalStatusRejected,
}

// String implements fmt.Stringer.
func (s VendorApprovalStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known VendorApprovalStatus.
func (s VendorApprovalStatus) IsValid() bool {
	for _, candidate := range validVendorApprovalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseVendorApprovalStatus converts raw input into a VendorApprovalStatus.
func ParseVendorApprovalStatus(value string) (VendorApprovalStatus, error) {
	for _, candidate := range validVendorApprovalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vendor approval status %q", value)
}
