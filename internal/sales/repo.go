package sales

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository persists sales and the invoice and delivery rows hanging off them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindSale(ctx context.Context, saleID uuid.UUID) (*models.Sale, error)
	FindSaleByOrder(ctx context.Context, orderID uuid.UUID) (*models.Sale, error)
	FindInvoiceBySale(ctx context.Context, saleID uuid.UUID) (*models.Invoice, error)
	FindDeliveryBySale(ctx context.Context, saleID uuid.UUID) (*models.Delivery, error)
	CreateSale(ctx context.Context, sale *models.Sale) error
	CreateInvoice(ctx context.Context, invoice *models.Invoice) error
	CreateDelivery(ctx context.Context, delivery *models.Delivery) error
	ClientAddress(ctx context.Context, clientID uuid.UUID) (*string, error)
	SumOrderPayments(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
	LockDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error)
	UpdateDelivery(ctx context.Context, deliveryID uuid.UUID, updates map[string]any) error
	LockInvoice(ctx context.Context, invoiceID uuid.UUID) (*models.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, invoiceID uuid.UUID, status enums.InvoicePaymentStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the sales repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
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
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("product_id ASC") }).
		Where("order_id = ?", orderID).
		First(&sale).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *repository) FindInvoiceBySale(ctx context.Context, saleID uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := r.db.WithContext(ctx).Where("sale_id = ?", saleID).First(&invoice).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *repository) FindDeliveryBySale(ctx context.Context, saleID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := r.db.WithContext(ctx).Where("sale_id = ?", saleID).First(&delivery).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

// CreateSale inserts the sale and its lines in one statement batch.
func (r *repository) CreateSale(ctx context.Context, sale *models.Sale) error {
	if sale.ID == uuid.Nil {
		sale.ID = uuid.New()
	}
	lines := sale.Lines
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(sale).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	for i := range lines {
		lines[i].SaleID = sale.ID
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *repository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice.ID == uuid.Nil {
		invoice.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(invoice).Error
}

func (r *repository) CreateDelivery(ctx context.Context, delivery *models.Delivery) error {
	if delivery.ID == uuid.Nil {
		delivery.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(delivery).Error
}

// ClientAddress returns nil when the client has no address on file.
func (r *repository) ClientAddress(ctx context.Context, clientID uuid.UUID) (*string, error) {
	var client models.Client
	err := r.db.WithContext(ctx).Select("id", "address").Where("id = ?", clientID).First(&client).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client.Address, nil
}

func (r *repository) SumOrderPayments(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).Select("amount").Where("order_id = ?", orderID).Find(&payments).Error; err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total, nil
}

func (r *repository) LockDelivery(ctx context.Context, deliveryID uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", deliveryID).
		First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *repository) UpdateDelivery(ctx context.Context, deliveryID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).Model(&models.Delivery{}).Where("id = ?", deliveryID).UpdateColumns(updates).Error
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

func (r *repository) UpdateInvoiceStatus(ctx context.Context, invoiceID uuid.UUID, status enums.InvoicePaymentStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", invoiceID).
		UpdateColumn("payment_status", status).Error
}
