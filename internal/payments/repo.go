package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository persists payments and the invoice state they settle.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	LockInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	FindInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	FindSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error)
	FindSaleByOrder(ctx context.Context, orderID uuid.UUID) (*models.Sale, error)
	LockInvoiceBySale(ctx context.Context, saleID uuid.UUID) (*models.Invoice, error)
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	VendorUserID(ctx context.Context, vendorID uuid.UUID) (uuid.UUID, error)
	Create(ctx context.Context, payment *models.Payment) error
	SumForInvoice(ctx context.Context, invoiceID, orderID uuid.UUID) (decimal.Decimal, error)
	SetInvoiceStatus(ctx context.Context, invoiceID uuid.UUID, status enums.InvoicePaymentStatus) error
	ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]models.Payment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the payments repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) LockInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", invoiceID).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Where("id = ?", invoiceID).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).Where("id = ?", saleID).First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindSaleByOrder(ctx context.Context, orderID uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) LockInvoiceBySale(ctx context.Context, saleID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("sale_id = ?", saleID).
		First(&invoice).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) VendorUserID(ctx context.Context, vendorID uuid.UUID) (uuid.UUID, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Select("id", "user_id").Where("id = ?", vendorID).First(&vendor).Error; err != nil {
		return uuid.Nil, err
	}
	return vendor.UserID, nil
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}

// SumForInvoice adds payments made against the invoice or against its order.
func (r *repository) SumForInvoice(ctx context.Context, invoiceID, orderID uuid.UUID) (decimal.Decimal, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Select("id", "amount").
		Where("invoice_id = ? OR order_id = ?", invoiceID, orderID).
		Find(&rows).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	return total, nil
}

func (r *repository) SetInvoiceStatus(ctx context.Context, invoiceID uuid.UUID, status enums.InvoicePaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		UpdateColumn("payment_status", status).Error
}

func (r *repository) ListByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("paid_at ASC, id ASC").
		Find(&rows).Error
	return rows, err
}
