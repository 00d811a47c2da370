package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is a client's request for products from a single vendor.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	ClientID     uuid.UUID         `gorm:"column:client_id;type:uuid;not null;index"`
	VendorID     *uuid.UUID        `gorm:"column:vendor_id;type:uuid;index"`
	Status       enums.OrderStatus `gorm:"column:status;type:text;not null;index"`
	ArticleCount int               `gorm:"column:article_count;not null"`
	PaidAt       *time.Time        `gorm:"column:paid_at"`
	ValidatedAt  *time.Time        `gorm:"column:validated_at"`
	DeliveredAt  *time.Time        `gorm:"column:delivered_at"`
	CancelledAt  *time.Time        `gorm:"column:cancelled_at"`
	Lines        []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderLine captures a product quantity and the price at order time.
type OrderLine struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Position  int             `gorm:"column:position;not null"`
}

// Subtotal returns quantity × unit price.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
