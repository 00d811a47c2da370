package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, input notifications.NotifyInput) (*models.Notification, error)
}

// RecordInput describes a payment against an invoice, an order, or both.
type RecordInput struct {
	InvoiceID *uuid.UUID
	OrderID   *uuid.UUID
	Amount    decimal.Decimal
	Mode      enums.PaymentMode
}

// RecordResult returns the stored payment together with the invoice status after it.
type RecordResult struct {
	Payment       models.Payment              `json:"payment"`
	InvoiceStatus *enums.InvoicePaymentStatus `json:"invoiceStatus,omitempty"`
}

// Service records payments and settles invoices once fully covered.
type Service struct {
	repo     Repository
	tx       txRunner
	notifier notifier
	now      func() time.Time
}

// NewService wires the payments service.
func NewService(repo Repository, tx txRunner, notifier notifier) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	return &Service{repo: repo, tx: tx, notifier: notifier, now: time.Now}, nil
}

// Record stores a payment. The paying client, or an admin, may record it.
func (s *Service) Record(ctx context.Context, principal auth.Principal, input RecordInput) (*RecordResult, error) {
	if input.InvoiceID == nil && input.OrderID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id or order id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment mode")
	}

	var result *RecordResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var (
			invoice  *models.Invoice
			clientID uuid.UUID
			vendorID uuid.UUID
			orderID  = input.OrderID
		)
		if input.InvoiceID != nil {
			var err error
			invoice, err = repo.LockInvoice(ctx, *input.InvoiceID)
			if err != nil {
				return db.LookupError(err, "invoice")
			}
			if invoice.PaymentStatus == enums.InvoicePaymentStatusCancelled {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "invoice is cancelled")
			}
			if invoice.SaleID == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "invoice has no sale")
			}
			sale, err := repo.FindSale(ctx, *invoice.SaleID)
			if err != nil {
				return db.LookupError(err, "sale")
			}
			if orderID != nil && *orderID != sale.OrderID {
				return pkgerrors.New(pkgerrors.CodeValidation, "invoice does not belong to order")
			}
			saleOrder := sale.OrderID
			orderID = &saleOrder
			clientID, vendorID = sale.ClientID, sale.VendorID
		} else {
			order, err := repo.FindOrder(ctx, *orderID)
			if err != nil {
				return db.LookupError(err, "order")
			}
			if order.Status == enums.OrderStatusCancelled {
				return pkgerrors.New(pkgerrors.CodeInvalidTransition, "order is cancelled")
			}
			if order.VendorID == nil {
				return pkgerrors.New(pkgerrors.CodeValidation, "order has no vendor")
			}
			clientID, vendorID = order.ClientID, *order.VendorID

			invoice, err = s.invoiceForOrder(ctx, repo, order.ID)
			if err != nil {
				return err
			}
		}

		if !principal.IsAdmin() && !principal.IsClient(clientID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "payment not allowed for this order")
		}

		payment := models.Payment{
			InvoiceID: input.InvoiceID,
			OrderID:   orderID,
			PaidAt:    s.now().UTC(),
			Amount:    input.Amount.Round(2),
			Mode:      input.Mode,
		}
		if err := repo.Create(ctx, &payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		result = &RecordResult{Payment: payment}

		if invoice != nil {
			status, err := s.settle(ctx, repo, invoice, *orderID)
			if err != nil {
				return err
			}
			result.InvoiceStatus = &status
		}

		vendorUserID, err := repo.VendorUserID(ctx, vendorID)
		if err != nil {
			return db.LookupError(err, "vendor")
		}
		_, err = s.notifier.Notify(ctx, tx, notifications.NotifyInput{
			UserID:  vendorUserID,
			Type:    enums.NotificationTypePaymentReceived,
			Message: fmt.Sprintf("Payment of %s received (%s)", payment.Amount.StringFixed(2), payment.Mode),
			OrderID: orderID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListByInvoice returns payments for an invoice, oldest first.
func (s *Service) ListByInvoice(ctx context.Context, principal auth.Principal, invoiceID uuid.UUID) ([]models.Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	invoice, err := s.repo.FindInvoice(ctx, invoiceID)
	if err != nil {
		return nil, db.LookupError(err, "invoice")
	}
	if !principal.IsAdmin() {
		if invoice.SaleID == nil {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invoice not accessible")
		}
		sale, err := s.repo.FindSale(ctx, *invoice.SaleID)
		if err != nil {
			return nil, db.LookupError(err, "sale")
		}
		if !principal.IsClient(sale.ClientID) && !principal.IsVendor(sale.VendorID) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invoice not accessible")
		}
	}
	rows, err := s.repo.ListByInvoice(ctx, invoiceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return rows, nil
}

// invoiceForOrder locks the invoice of an already delivered order, if any.
// A cancelled invoice is left alone.
func (s *Service) invoiceForOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Invoice, error) {
	sale, err := repo.FindSaleByOrder(ctx, orderID)
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	invoice, err := repo.LockInvoiceBySale(ctx, sale.ID)
	if db.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	if invoice.PaymentStatus == enums.InvoicePaymentStatusCancelled {
		return nil, nil
	}
	return invoice, nil
}

func (s *Service) settle(ctx context.Context, repo Repository, invoice *models.Invoice, orderID uuid.UUID) (enums.InvoicePaymentStatus, error) {
	paid, err := repo.SumForInvoice(ctx, invoice.ID, orderID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum invoice payments")
	}
	if invoice.PaymentStatus == enums.InvoicePaymentStatusPaid || paid.LessThan(invoice.TotalAmount) {
		return invoice.PaymentStatus, nil
	}
	if err := repo.SetInvoiceStatus(ctx, invoice.ID, enums.InvoicePaymentStatusPaid); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark invoice paid")
	}
	return enums.InvoicePaymentStatusPaid, nil
}
