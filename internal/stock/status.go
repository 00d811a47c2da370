package stock

import "github.com/angelmondragon/storefront-backend/pkg/enums"

const (
	criticalCeiling   = 10
	mediumCeiling     = 50
	sufficientCeiling = 150
)

// DeriveStatus maps an on-hand quantity to its stock band. A critical
// threshold above the default ceiling widens the critical band.
func DeriveStatus(stock, criticalThreshold int) enums.StockStatus {
	critical := criticalCeiling
	if criticalThreshold > critical {
		critical = criticalThreshold
	}
	switch {
	case stock <= 0:
		return enums.StockStatusOutOfStock
	case stock <= critical:
		return enums.StockStatusCritical
	case stock <= mediumCeiling:
		return enums.StockStatusMedium
	case stock < sufficientCeiling:
		return enums.StockStatusSufficient
	default:
		return enums.StockStatusOverstock
	}
}
