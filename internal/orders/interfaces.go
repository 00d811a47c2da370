package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/sales"
	"github.com/angelmondragon/storefront-backend/internal/stock"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error)
	ListForClient(ctx context.Context, clientID uuid.UUID, params listOrdersParams) ([]models.Order, *pagination.Cursor, error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, params listOrdersParams) ([]models.Order, *pagination.Cursor, error)
	FindOverdue(ctx context.Context, cutoff time.Time) ([]OverdueOrder, error)
	VendorUserID(ctx context.Context, vendorID uuid.UUID) (uuid.UUID, error)
	ClientUserID(ctx context.Context, clientID uuid.UUID) (uuid.UUID, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockLedger interface {
	DecrementAll(ctx context.Context, tx *gorm.DB, demands []stock.Demand, referenceID *uuid.UUID) ([]stock.Result, error)
	RestoreAll(ctx context.Context, tx *gorm.DB, demands []stock.Demand, referenceID *uuid.UUID) ([]stock.Result, error)
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, input notifications.NotifyInput) (*models.Notification, error)
}

type saleMaterializer interface {
	Materialize(ctx context.Context, tx *gorm.DB, order *models.Order) (*sales.Record, error)
}

type transitionMetrics interface {
	IncTransition(status string)
	IncInsufficientStock()
}

// OverdueOrder is an undelivered order joined to its vendor's reminder preferences.
type OverdueOrder struct {
	OrderID          uuid.UUID
	VendorID         uuid.UUID
	VendorUserID     uuid.UUID
	Status           enums.OrderStatus
	CreatedAt        time.Time
	RemindersEnabled bool
	ReminderWindow   enums.ReminderWindow
}
