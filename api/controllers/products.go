package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	productsvc "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const (
	maxProductNameLen        = 200
	maxProductDescriptionLen = 4000
)

type createProductRequest struct {
	Name              string          `json:"name" validate:"required"`
	Description       *string         `json:"description,omitempty"`
	ImageURL          *string         `json:"imageUrl,omitempty" validate:"omitempty,url"`
	UnitPrice         decimal.Decimal `json:"unitPrice" validate:"money"`
	Stock             int             `json:"stock" validate:"min=0"`
	AlertThreshold    *int            `json:"alertThreshold,omitempty" validate:"omitempty,min=0"`
	CriticalThreshold *int            `json:"criticalThreshold,omitempty" validate:"omitempty,min=0"`
	CategoryID        *uuid.UUID      `json:"categoryId,omitempty"`
	UnitID            *uuid.UUID      `json:"unitId,omitempty"`
}

func (p createProductRequest) toCreateInput() productsvc.CreateProductInput {
	input := productsvc.CreateProductInput{
		Name:              validators.SanitizeString(p.Name, maxProductNameLen),
		ImageURL:          p.ImageURL,
		UnitPrice:         p.UnitPrice,
		Stock:             p.Stock,
		AlertThreshold:    p.AlertThreshold,
		CriticalThreshold: p.CriticalThreshold,
		CategoryID:        p.CategoryID,
		UnitID:            p.UnitID,
	}
	if p.Description != nil {
		desc := validators.SanitizeString(*p.Description, maxProductDescriptionLen)
		input.Description = &desc
	}
	return input
}

type adjustStockRequest struct {
	Quantity int                   `json:"quantity" validate:"gt=0"`
	Mode     enums.StockAdjustMode `json:"mode" validate:"required,stock_mode"`
}

// VendorCreateProduct lists a new product for the calling vendor.
func VendorCreateProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), principal, payload.toCreateInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// VendorAdjustStock applies a manual add or subtract to one product.
func VendorAdjustStock(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustStockRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AdjustStock(r.Context(), principal, productID, productsvc.AdjustStockInput{
			Quantity: payload.Quantity,
			Mode:     payload.Mode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func GetProduct(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ListVendorProducts pages through one vendor's catalogue.
func ListVendorProducts(svc productsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := validators.ParseURLUUID(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListByVendor(r.Context(), vendorID, productsvc.ListProductsInput{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WritePage(w, page.Products, page.NextCursor)
	}
}
