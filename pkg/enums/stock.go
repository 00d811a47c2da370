package enums

import "fmt"

// StockStatus is the band a product's on-hand quantity falls into.
type StockStatus string

const (
	StockStatusOutOfStock StockStatus = "out_of_stock"
	StockStatusCritical   StockStatus = "critical"
	StockStatusMedium     StockStatus = "medium"
	StockStatusSufficient StockStatus = "sufficient"
	StockStatusOverstock  StockStatus = "overstock"
)

// StockDisplay is the label and badge colour shown for a status.
type StockDisplay struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

var stockDisplays = map[StockStatus]StockDisplay{
	StockStatusOutOfStock: {Label: "Out of stock", Color: "red"},
	StockStatusCritical:   {Label: "Critical", Color: "orange"},
	StockStatusMedium:     {Label: "Medium", Color: "yellow"},
	StockStatusSufficient: {Label: "Sufficient", Color: "green"},
	StockStatusOverstock:  {Label: "Overstock", Color: "blue"},
}

var validStockStatuses = []StockStatus{
	StockStatusOutOfStock,
	StockStatusCritical,
	StockStatusMedium,
	StockStatusSufficient,
	StockStatusOverstock,
}

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockStatus.
func (s StockStatus) IsValid() bool {
	for _, candidate := range validStockStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Display returns the label and colour for s.
func (s StockStatus) Display() StockDisplay {
	if display, ok := stockDisplays[s]; ok {
		return display
	}
	return StockDisplay{Label: string(s), Color: "gray"}
}

// StockStatuses returns every known stock status.
func StockStatuses() []StockStatus {
	out := make([]StockStatus, len(validStockStatuses))
	copy(out, validStockStatuses)
	return out
}

// StockAdjustMode selects the direction of a manual stock adjustment.
type StockAdjustMode string

const (
	StockAdjustModeAdd      StockAdjustMode = "add"
	StockAdjustModeSubtract StockAdjustMode = "subtract"
)

// IsValid reports whether the value is a known StockAdjustMode.
func (m StockAdjustMode) IsValid() bool {
	return m == StockAdjustModeAdd || m == StockAdjustModeSubtract
}

// ParseStockAdjustMode converts raw input into a StockAdjustMode.
func ParseStockAdjustMode(value string) (StockAdjustMode, error) {
	mode := StockAdjustMode(value)
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid stock adjust mode %q", value)
	}
	return mode, nil
}

// StockMovementReason records why a stock row changed.
type StockMovementReason string

const (
	StockMovementReasonOrderValidation   StockMovementReason = "order_validation"
	StockMovementReasonOrderCancellation StockMovementReason = "order_cancellation"
	StockMovementReasonManualAdjustment  StockMovementReason = "manual_adjustment"
)

// IsValid reports whether the value is a known StockMovementReason.
func (r StockMovementReason) IsValid() bool {
	switch r {
	case StockMovementReasonOrderValidation, StockMovementReasonOrderCancellation, StockMovementReasonManualAdjustment:
		return true
	}
	return false
}
