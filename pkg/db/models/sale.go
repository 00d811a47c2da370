package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Sale is the commercial record of a delivered order.
type Sale struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	ClientID    uuid.UUID       `gorm:"column:client_id;type:uuid;not null"`
	VendorID    uuid.UUID       `gorm:"column:vendor_id;type:uuid;not null"`
	SoldAt      time.Time       `gorm:"column:sold_at;not null"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	State       enums.SaleState `gorm:"column:state;type:text;not null"`
	Lines       []SaleLine      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

// SaleLine is keyed by (sale, product).
type SaleLine struct {
	SaleID    uuid.UUID       `gorm:"column:sale_id;type:uuid;primaryKey"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;primaryKey"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
}

// Invoice bills either a sale or an order, never both.
type Invoice struct {
	ID            uuid.UUID                  `gorm:"column:id;type:uuid;primaryKey"`
	SaleID        *uuid.UUID                 `gorm:"column:sale_id;type:uuid;uniqueIndex"`
	OrderID       *uuid.UUID                 `gorm:"column:order_id;type:uuid"`
	AmountExclTax decimal.Decimal            `gorm:"column:amount_excl_tax;type:numeric(12,2);not null"`
	AmountInclTax decimal.Decimal            `gorm:"column:amount_incl_tax;type:numeric(12,2);not null"`
	TotalAmount   decimal.Decimal            `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentStatus enums.InvoicePaymentStatus `gorm:"column:payment_status;type:text;not null"`
	CreatedAt     time.Time                  `gorm:"column:created_at;autoCreateTime"`
}

// Payment settles all or part of an invoice and/or order.
type Payment struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	InvoiceID *uuid.UUID        `gorm:"column:invoice_id;type:uuid;index"`
	OrderID   *uuid.UUID        `gorm:"column:order_id;type:uuid;index"`
	PaidAt    time.Time         `gorm:"column:paid_at;not null"`
	Amount    decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null"`
	Mode      enums.PaymentMode `gorm:"column:mode;type:text;not null"`
}

// Delivery ships either a sale or an order, never both.
type Delivery struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	SaleID       *uuid.UUID           `gorm:"column:sale_id;type:uuid;uniqueIndex"`
	OrderID      *uuid.UUID           `gorm:"column:order_id;type:uuid"`
	DeliveryDate *time.Time           `gorm:"column:delivery_date"`
	Status       enums.DeliveryStatus `gorm:"column:status;type:text;not null"`
	Address      *string              `gorm:"column:address"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
}
