package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultAlertThreshold    = 10
	DefaultCriticalThreshold = 3
)

// Product is a vendor listing along with its on-hand stock.
type Product struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VendorID          uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null;index"`
	CategoryID        *uuid.UUID      `gorm:"column:category_id;type:uuid"`
	UnitID            *uuid.UUID      `gorm:"column:unit_id;type:uuid"`
	Name              string          `gorm:"column:name;not null"`
	Description       *string         `gorm:"column:description"`
	ImageURL          *string         `gorm:"column:image_url"`
	UnitPrice         decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Stock             int             `gorm:"column:stock;not null"`
	AlertThreshold    int             `gorm:"column:alert_threshold;not null"`
	CriticalThreshold int             `gorm:"column:critical_threshold;not null"`
	LastStockUpdateAt *time.Time      `gorm:"column:last_stock_update_at"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
