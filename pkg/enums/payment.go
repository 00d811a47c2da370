package enums

import "fmt"

// InvoicePaymentStatus tracks whether an invoice has been settled.
type InvoicePaymentStatus string

const (
	InvoicePaymentStatusPaid      InvoicePaymentStatus = "paid"
	InvoicePaymentStatusPending   InvoicePaymentStatus = "pending"
	InvoicePaymentStatusCancelled InvoicePaymentStatus = "cancelled"
)

var validInvoicePaymentStatuses = []InvoicePaymentStatus{
	InvoicePaymentStatusPaid,
	InvoicePaymentStatusPending,
	InvoicePaymentStatusCancelled,
}

// String implements fmt.Stringer.
func (s InvoicePaymentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known InvoicePaymentStatus.
func (s InvoicePaymentStatus) IsValid() bool {
	for _, candidate := range validInvoicePaymentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseInvoicePaymentStatus converts raw input into an InvoicePaymentStatus.
func ParseInvoicePaymentStatus(value string) (InvoicePaymentStatus, error) {
	for _, candidate := range validInvoicePaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid invoice payment status %q", value)
}

// PaymentMode is the instrument a payment was made with.
type PaymentMode string

const (
	PaymentModeCard     PaymentMode = "card"
	PaymentModeTransfer PaymentMode = "transfer"
	PaymentModeCash     PaymentMode = "cash"
)

var validPaymentModes = []PaymentMode{
	PaymentModeCard,
	PaymentModeTransfer,
	PaymentModeCash,
}

// String implements fmt.Stringer.
func (m PaymentMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMode.
func (m PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePaymentMode converts raw input into a PaymentMode.
func ParsePaymentMode(value string) (PaymentMode, error) {
	for _, candidate := range validPaymentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
