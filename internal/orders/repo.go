package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

type listOrdersParams struct {
	Limit  int
	Cursor *pagination.Cursor
	Status *enums.OrderStatus
}

// CreateOrder inserts the order row followed by its lines.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error; err != nil {
		return err
	}
	if len(order.Lines) == 0 {
		return nil
	}
	for i := range order.Lines {
		if order.Lines[i].ID == uuid.Nil {
			order.Lines[i].ID = uuid.New()
		}
		order.Lines[i].OrderID = order.ID
	}
	return r.db.WithContext(ctx).Create(&order.Lines).Error
}

func (r *repository) FindProducts(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// LockOrder reads the order row FOR UPDATE, then its lines.
func (r *repository) LockOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	if err := r.loadLines(ctx, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) loadLines(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", order.ID).
		Order("position ASC").
		Find(&order.Lines).Error
}

// UpdateStatus moves the order from one status to another, stamping the
// matching lifecycle column. It reports false when the order was not in from.
func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus, at time.Time) (bool, error) {
	updates := map[string]any{
		"status":     to,
		"updated_at": at,
	}
	switch to {
	case enums.OrderStatusPaid:
		updates["paid_at"] = at
	case enums.OrderStatusValidated:
		updates["validated_at"] = at
	case enums.OrderStatusDelivered:
		updates["delivered_at"] = at
	case enums.OrderStatusCancelled:
		updates["cancelled_at"] = at
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, from).
		UpdateColumns(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListForClient(ctx context.Context, clientID uuid.UUID, params listOrdersParams) ([]models.Order, *pagination.Cursor, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("client_id = ?", clientID), params)
}

func (r *repository) ListForVendor(ctx context.Context, vendorID uuid.UUID, params listOrdersParams) ([]models.Order, *pagination.Cursor, error) {
	return r.list(ctx, r.db.WithContext(ctx).Where("vendor_id = ?", vendorID), params)
}

func (r *repository) list(ctx context.Context, query *gorm.DB, params listOrdersParams) ([]models.Order, *pagination.Cursor, error) {
	query = query.Model(&models.Order{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var rows []models.Order
	err := query.
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Scopes(pagination.NewestFirst(params.Cursor, params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	page, next := pagination.Trim(rows, params.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return page, next, nil
}

type overdueRow struct {
	OrderID          uuid.UUID            `gorm:"column:order_id"`
	VendorID         uuid.UUID            `gorm:"column:vendor_id"`
	VendorUserID     uuid.UUID            `gorm:"column:vendor_user_id"`
	Status           enums.OrderStatus    `gorm:"column:status"`
	CreatedAt        time.Time            `gorm:"column:created_at"`
	RemindersEnabled bool                 `gorm:"column:reminders_enabled"`
	ReminderWindow   enums.ReminderWindow `gorm:"column:reminder_window"`
}

// FindOverdue lists orders created at or before cutoff that are neither
// delivered nor cancelled and whose vendor user has reminders enabled.
func (r *repository) FindOverdue(ctx context.Context, cutoff time.Time) ([]OverdueOrder, error) {
	var rows []overdueRow
	err := r.db.WithContext(ctx).
		Table("orders AS o").
		Select("o.id AS order_id, o.vendor_id AS vendor_id, u.id AS vendor_user_id, o.status AS status, o.created_at AS created_at, u.reminders_enabled AS reminders_enabled, u.reminder_window AS reminder_window").
		Joins("JOIN vendors AS v ON v.id = o.vendor_id").
		Joins("JOIN users AS u ON u.id = v.user_id").
		Where("o.status NOT IN ?", []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled}).
		Where("o.created_at <= ?", cutoff).
		Where("u.reminders_enabled = ?", true).
		Order("o.created_at ASC, o.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]OverdueOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, OverdueOrder(row))
	}
	return out, nil
}

func (r *repository) VendorUserID(ctx context.Context, vendorID uuid.UUID) (uuid.UUID, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Select("id", "user_id").Where("id = ?", vendorID).First(&vendor).Error; err != nil {
		return uuid.Nil, err
	}
	return vendor.UserID, nil
}

func (r *repository) ClientUserID(ctx context.Context, clientID uuid.UUID) (uuid.UUID, error) {
	var client models.Client
	if err := r.db.WithContext(ctx).Select("id", "user_id").Where("id = ?", clientID).First(&client).Error; err != nil {
		return uuid.Nil, err
	}
	return client.UserID, nil
}
