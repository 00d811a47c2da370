package orders

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/internal/sales"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type createOrderLine struct {
	ProductID uuid.UUID       `json:"productId" validate:"required"`
	Quantity  int             `json:"quantity" validate:"gt=0"`
	UnitPrice decimal.Decimal `json:"unitPrice" validate:"money"`
}

type createOrderRequest struct {
	Lines []createOrderLine `json:"lines" validate:"required,min=1,dive"`
}

type advanceOrderRequest struct {
	Status enums.OrderStatus `json:"status" validate:"required"`
}

type saleReader interface {
	GetSaleByOrder(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*sales.Record, error)
}

// Create places an order for the calling client.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateInput{ClientID: principal.ProfileID}
		for _, line := range body.Lines {
			input.Lines = append(input.Lines, internalorders.LineInput{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
			})
		}

		order, err := svc.Create(r.Context(), principal, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListForClient pages through the calling client's orders.
func ListForClient(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return list(logg, func(r *http.Request, principal auth.Principal, params internalorders.ListParams) (*internalorders.OrderList, error) {
		return svc.ListForClient(r.Context(), principal, principal.ProfileID, params)
	})
}

// ListForVendor pages through the orders addressed to the calling vendor.
func ListForVendor(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return list(logg, func(r *http.Request, principal auth.Principal, params internalorders.ListParams) (*internalorders.OrderList, error) {
		return svc.ListForVendor(r.Context(), principal, principal.ProfileID, params)
	})
}

func list(logg *logger.Logger, fetch func(*http.Request, auth.Principal, internalorders.ListParams) (*internalorders.OrderList, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := internalorders.ListParams{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			params.Status = &status
		}

		page, err := fetch(r, principal, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, page.Orders, page.NextCursor)
	}
}

// Detail returns one order visible to the caller.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(logg, svc.Get)
}

// Pay marks a pending order as paid.
func Pay(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(logg, svc.MarkPaid)
}

// Validate confirms a paid order and decrements its stock.
func Validate(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(logg, svc.Validate)
}

// Cancel cancels a non-terminal order.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return orderAction(logg, svc.Cancel)
}

// Advance moves a validated order one fulfillment step forward.
func Advance(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, orderID, err := principalAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body advanceOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		order, err := svc.Advance(ctx, principal, orderID, body.Status)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// Sale returns the sale, invoice and delivery of a delivered order.
func Sale(svc saleReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, orderID, err := principalAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.GetSaleByOrder(r.Context(), principal, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

type orderFunc func(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*internalorders.OrderDetail, error)

func orderAction(logg *logger.Logger, fn orderFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, orderID, err := principalAndOrder(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID.String())
		}
		order, err := fn(ctx, principal, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

func principalAndOrder(r *http.Request) (auth.Principal, uuid.UUID, error) {
	principal, err := middleware.RequirePrincipal(r.Context())
	if err != nil {
		return auth.Principal{}, uuid.Nil, err
	}
	orderID, err := validators.ParseURLUUID(r, "orderId")
	if err != nil {
		return auth.Principal{}, uuid.Nil, err
	}
	return principal, orderID, nil
}
