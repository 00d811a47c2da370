package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// PaymentsService is the slice of payments.Service the HTTP layer uses.
type PaymentsService interface {
	Record(ctx context.Context, principal auth.Principal, input payments.RecordInput) (*payments.RecordResult, error)
	ListByInvoice(ctx context.Context, principal auth.Principal, invoiceID uuid.UUID) ([]models.Payment, error)
}

type recordPaymentRequest struct {
	InvoiceID *uuid.UUID        `json:"invoiceId,omitempty"`
	OrderID   *uuid.UUID        `json:"orderId,omitempty"`
	Amount    decimal.Decimal   `json:"amount" validate:"money"`
	Mode      enums.PaymentMode `json:"mode" validate:"required,payment_mode"`
}

// RecordPayment stores a payment against an invoice or an order.
func RecordPayment(svc PaymentsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload recordPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.InvoiceID == nil && payload.OrderID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invoiceId or orderId required"))
			return
		}

		result, err := svc.Record(r.Context(), principal, payments.RecordInput{
			InvoiceID: payload.InvoiceID,
			OrderID:   payload.OrderID,
			Amount:    payload.Amount,
			Mode:      payload.Mode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func ListInvoicePayments(svc PaymentsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invoiceID, err := validators.ParseURLUUID(r, "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListByInvoice(r.Context(), principal, invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}
