package enums

import "fmt"

// NotificationType is the closed set of in-app notification kinds.
type NotificationType string

const (
	NotificationTypeAlert           NotificationType = "alert"
	NotificationTypeInfo            NotificationType = "info"
	NotificationTypeConfirmation    NotificationType = "confirmation"
	NotificationTypeVendorRequest   NotificationType = "vendor_request"
	NotificationTypeVendorApproval  NotificationType = "vendor_approval"
	NotificationTypeVendorRejection NotificationType = "vendor_rejection"
	NotificationTypeNewOrder        NotificationType = "new_order"
	NotificationTypePaymentReceived NotificationType = "payment_received"
	NotificationTypeNewProduct      NotificationType = "new_product"
	NotificationTypeOrderReminder   NotificationType = "order_reminder"
)

// Severity drives how a notification is rendered.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// NotificationDisplay is the presentation metadata attached to a type.
type NotificationDisplay struct {
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
}

var notificationDisplays = map[NotificationType]NotificationDisplay{
	NotificationTypeAlert:           {Title: "Stock alert", Severity: SeverityDanger},
	NotificationTypeInfo:            {Title: "Information", Severity: SeverityInfo},
	NotificationTypeConfirmation:    {Title: "Order confirmed", Severity: SeveritySuccess},
	NotificationTypeVendorRequest:   {Title: "Vendor approval requested", Severity: SeverityWarning},
	NotificationTypeVendorApproval:  {Title: "Shop approved", Severity: SeveritySuccess},
	NotificationTypeVendorRejection: {Title: "Shop rejected", Severity: SeverityDanger},
	NotificationTypeNewOrder:        {Title: "New order", Severity: SeverityInfo},
	NotificationTypePaymentReceived: {Title: "Payment received", Severity: SeveritySuccess},
	NotificationTypeNewProduct:      {Title: "New product", Severity: SeverityInfo},
	NotificationTypeOrderReminder:   {Title: "Order awaiting delivery", Severity: SeverityWarning},
}

var validNotificationTypes = []NotificationType{
	NotificationTypeAlert,
	NotificationTypeInfo,
	NotificationTypeConfirmation,
	NotificationTypeVendorRequest,
	NotificationTypeVendorApproval,
	NotificationTypeVendorRejection,
	NotificationTypeNewOrder,
	NotificationTypePaymentReceived,
	NotificationTypeNewProduct,
	NotificationTypeOrderReminder,
}

// String implements fmt.Stringer.
func (n NotificationType) String() string {
	return string(n)
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// Display returns the presentation metadata for n. Unknown values fall back to info.
func (n NotificationType) Display() NotificationDisplay {
	if display, ok := notificationDisplays[n]; ok {
		return display
	}
	return notificationDisplays[NotificationTypeInfo]
}

// NotificationTypes returns every known notification type.
func NotificationTypes() []NotificationType {
	out := make([]NotificationType, len(validNotificationTypes))
	copy(out, validNotificationTypes)
	return out
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
