package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/stock"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// ProductDTO is a product together with its derived stock band.
type ProductDTO struct {
	ID                uuid.UUID          `json:"id"`
	VendorID          uuid.UUID          `json:"vendor_id"`
	CategoryID        *uuid.UUID         `json:"category_id,omitempty"`
	UnitID            *uuid.UUID         `json:"unit_id,omitempty"`
	Name              string             `json:"name"`
	Description       *string            `json:"description,omitempty"`
	ImageURL          *string            `json:"image_url,omitempty"`
	UnitPrice         decimal.Decimal    `json:"unit_price"`
	Stock             int                `json:"stock"`
	AlertThreshold    int                `json:"alert_threshold"`
	CriticalThreshold int                `json:"critical_threshold"`
	StockStatus       enums.StockStatus  `json:"stock_status"`
	StockDisplay      enums.StockDisplay `json:"stock_display"`
	LastStockUpdateAt *time.Time         `json:"last_stock_update_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// ProductList is one page of a vendor's products.
type ProductList struct {
	Products   []ProductDTO `json:"products"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// StockAdjustment is the outcome of a manual stock change.
type StockAdjustment struct {
	stock.Result
	Display enums.StockDisplay `json:"display"`
}

// NewProductDTO maps a product row to its API shape.
func NewProductDTO(p models.Product) ProductDTO {
	status := stock.DeriveStatus(p.Stock, p.CriticalThreshold)
	return ProductDTO{
		ID:                p.ID,
		VendorID:          p.VendorID,
		CategoryID:        p.CategoryID,
		UnitID:            p.UnitID,
		Name:              p.Name,
		Description:       p.Description,
		ImageURL:          p.ImageURL,
		UnitPrice:         p.UnitPrice,
		Stock:             p.Stock,
		AlertThreshold:    p.AlertThreshold,
		CriticalThreshold: p.CriticalThreshold,
		StockStatus:       status,
		StockDisplay:      status.Display(),
		LastStockUpdateAt: p.LastStockUpdateAt,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}
