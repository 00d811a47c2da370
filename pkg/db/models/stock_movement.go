package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// StockMovement is the append-only audit row written for every stock change.
type StockMovement struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	Reason        enums.StockMovementReason `gorm:"column:reason;type:text;not null"`
	Delta         int                       `gorm:"column:delta;not null"`
	PreviousStock int                       `gorm:"column:previous_stock;not null"`
	NewStock      int                       `gorm:"column:new_stock;not null"`
	ReferenceID   *uuid.UUID                `gorm:"column:reference_id;type:uuid"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime"`
}
