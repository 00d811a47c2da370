package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Record groups the rows produced when an order is delivered.
type Record struct {
	Sale     models.Sale     `json:"sale"`
	Invoice  models.Invoice  `json:"invoice"`
	Delivery models.Delivery `json:"delivery"`
}

// Service materializes sales for delivered orders and moves their invoice and
// delivery forward afterwards.
type Service struct {
	repo    Repository
	tx      txRunner
	taxRate decimal.Decimal
	logg    *logger.Logger
	now     func() time.Time
}

// NewService wires the sales service. taxRate is applied on top of the sale
// total to derive the tax-inclusive invoice amount.
func NewService(repo Repository, tx txRunner, taxRate decimal.Decimal, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if taxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must not be negative")
	}
	return &Service{repo: repo, tx: tx, taxRate: taxRate, logg: logg, now: time.Now}, nil
}

// Materialize creates the sale, invoice and delivery for order inside tx.
// A second call for the same order returns the rows created by the first.
func (s *Service) Materialize(ctx context.Context, tx *gorm.DB, order *models.Order) (*Record, error) {
	if order == nil || order.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.VendorID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no vendor")
	}
	if len(order.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order has no lines")
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.FindSaleByOrder(ctx, order.ID)
	switch {
	case err == nil:
		return s.load(ctx, repo, existing)
	case !db.IsNotFound(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}

	now := s.now().UTC()
	sale := models.Sale{
		OrderID:     order.ID,
		ClientID:    order.ClientID,
		VendorID:    *order.VendorID,
		SoldAt:      now,
		TotalAmount: OrderTotal(order.Lines),
		State:       enums.SaleStateDelivered,
		Lines:       mergeLines(order.Lines),
	}
	if err := repo.CreateSale(ctx, &sale); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
	}

	paid, err := repo.SumOrderPayments(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum order payments")
	}
	invoice := s.buildInvoice(sale, paid, now)
	if err := repo.CreateInvoice(ctx, &invoice); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
	}

	address, err := repo.ClientAddress(ctx, order.ClientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client address")
	}
	delivery := models.Delivery{
		SaleID:    &sale.ID,
		Status:    enums.DeliveryStatusPreparing,
		Address:   address,
		CreatedAt: now,
	}
	if err := repo.CreateDelivery(ctx, &delivery); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create delivery")
	}

	if s.logg != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Info(logCtx, fmt.Sprintf("sale %s materialized total=%s", sale.ID, sale.TotalAmount.StringFixed(2)))
	}
	return &Record{Sale: sale, Invoice: invoice, Delivery: delivery}, nil
}

// GetSaleByOrder returns the sale record for an order visible to principal.
func (s *Service) GetSaleByOrder(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*Record, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	sale, err := s.repo.FindSaleByOrder(ctx, orderID)
	if err != nil {
		return nil, db.LookupError(err, "sale")
	}
	if !canAccess(principal, *sale) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "sale not accessible")
	}
	return s.load(ctx, s.repo, sale)
}

// AdvanceDelivery moves a delivery exactly one step along
// preparing → in_transit → delivered. Only the selling vendor or an admin may do so.
func (s *Service) AdvanceDelivery(ctx context.Context, principal auth.Principal, deliveryID uuid.UUID, target enums.DeliveryStatus) (*models.Delivery, error) {
	if deliveryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery id required")
	}
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid delivery status")
	}

	var result *models.Delivery
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		delivery, err := repo.LockDelivery(ctx, deliveryID)
		if err != nil {
			return db.LookupError(err, "delivery")
		}
		if err := s.authorizeVendor(ctx, repo, principal, delivery.SaleID); err != nil {
			return err
		}

		next, ok := delivery.Status.Next()
		if !ok || next != target {
			return pkgerrors.InvalidTransition("delivery", delivery.Status, target)
		}

		updates := map[string]any{"status": target}
		if target == enums.DeliveryStatusDelivered {
			at := s.now().UTC()
			updates["delivery_date"] = at
			delivery.DeliveryDate = &at
		}
		if err := repo.UpdateDelivery(ctx, delivery.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivery")
		}
		delivery.Status = target
		result = delivery
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelInvoice voids a pending invoice. Paid invoices cannot be cancelled.
func (s *Service) CancelInvoice(ctx context.Context, principal auth.Principal, invoiceID uuid.UUID) (*models.Invoice, error) {
	if invoiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}

	var result *models.Invoice
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invoice, err := repo.LockInvoice(ctx, invoiceID)
		if err != nil {
			return db.LookupError(err, "invoice")
		}
		if err := s.authorizeVendor(ctx, repo, principal, invoice.SaleID); err != nil {
			return err
		}
		if invoice.PaymentStatus != enums.InvoicePaymentStatusPending {
			return pkgerrors.InvalidTransition("invoice", invoice.PaymentStatus, enums.InvoicePaymentStatusCancelled)
		}
		if err := repo.UpdateInvoiceStatus(ctx, invoice.ID, enums.InvoicePaymentStatusCancelled); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel invoice")
		}
		invoice.PaymentStatus = enums.InvoicePaymentStatusCancelled
		result = invoice
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// OrderTotal sums quantity × unit price over lines.
func OrderTotal(lines []models.OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// InvoiceAmounts derives the pre-tax and tax-inclusive amounts for total.
func InvoiceAmounts(total, taxRate decimal.Decimal) (exclTax, inclTax decimal.Decimal) {
	exclTax = total.Round(2)
	inclTax = total.Mul(decimal.NewFromInt(1).Add(taxRate)).Round(2)
	return exclTax, inclTax
}

func (s *Service) buildInvoice(sale models.Sale, paid decimal.Decimal, now time.Time) models.Invoice {
	exclTax, inclTax := InvoiceAmounts(sale.TotalAmount, s.taxRate)
	status := enums.InvoicePaymentStatusPending
	if paid.GreaterThanOrEqual(inclTax) {
		status = enums.InvoicePaymentStatusPaid
	}
	saleID := sale.ID
	return models.Invoice{
		SaleID:        &saleID,
		AmountExclTax: exclTax,
		AmountInclTax: inclTax,
		TotalAmount:   inclTax,
		PaymentStatus: status,
		CreatedAt:     now,
	}
}

func (s *Service) load(ctx context.Context, repo Repository, sale *models.Sale) (*Record, error) {
	invoice, err := repo.FindInvoiceBySale(ctx, sale.ID)
	if err != nil {
		return nil, db.LookupError(err, "invoice")
	}
	delivery, err := repo.FindDeliveryBySale(ctx, sale.ID)
	if err != nil {
		return nil, db.LookupError(err, "delivery")
	}
	return &Record{Sale: *sale, Invoice: *invoice, Delivery: *delivery}, nil
}

func (s *Service) authorizeVendor(ctx context.Context, repo Repository, principal auth.Principal, saleID *uuid.UUID) error {
	if principal.IsAdmin() {
		return nil
	}
	if saleID == nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "record not accessible")
	}
	sale, err := repo.FindSale(ctx, *saleID)
	if err != nil {
		return db.LookupError(err, "sale")
	}
	if !principal.IsVendor(sale.VendorID) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "record not accessible")
	}
	return nil
}

func canAccess(principal auth.Principal, sale models.Sale) bool {
	return principal.IsAdmin() || principal.IsVendor(sale.VendorID) || principal.IsClient(sale.ClientID)
}

// mergeLines folds order lines for the same product into one sale line.
// When prices differ the merged unit price is the quantity-weighted mean.
func mergeLines(lines []models.OrderLine) []models.SaleLine {
	type acc struct {
		qty      int
		subtotal decimal.Decimal
	}
	order := make([]uuid.UUID, 0, len(lines))
	byProduct := make(map[uuid.UUID]*acc, len(lines))
	for _, line := range lines {
		a, ok := byProduct[line.ProductID]
		if !ok {
			a = &acc{subtotal: decimal.Zero}
			byProduct[line.ProductID] = a
			order = append(order, line.ProductID)
		}
		a.qty += line.Quantity
		a.subtotal = a.subtotal.Add(line.Subtotal())
	}

	out := make([]models.SaleLine, 0, len(order))
	for _, productID := range order {
		a := byProduct[productID]
		out = append(out, models.SaleLine{
			ProductID: productID,
			Quantity:  a.qty,
			UnitPrice: a.subtotal.Div(decimal.NewFromInt(int64(a.qty))).Round(2),
		})
	}
	return out
}
