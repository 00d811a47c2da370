package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/sales"
	"github.com/angelmondragon/storefront-backend/internal/vendors"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// VendorsService is the slice of vendors.Service the HTTP layer uses.
type VendorsService interface {
	RequestApproval(ctx context.Context, principal auth.Principal, vendorID uuid.UUID) (*models.Vendor, error)
	Approve(ctx context.Context, principal auth.Principal, vendorID uuid.UUID) (*models.Vendor, error)
	Reject(ctx context.Context, principal auth.Principal, vendorID uuid.UUID) (*models.Vendor, error)
	ReminderPreferences(ctx context.Context, principal auth.Principal) (*vendors.ReminderPreferences, error)
	UpdateReminderPreferences(ctx context.Context, principal auth.Principal, prefs vendors.ReminderPreferences) (*vendors.ReminderPreferences, error)
	AddFavorite(ctx context.Context, principal auth.Principal, vendorID uuid.UUID) error
	RemoveFavorite(ctx context.Context, principal auth.Principal, vendorID uuid.UUID) error
	ListFavorites(ctx context.Context, principal auth.Principal) ([]models.Vendor, error)
}

// FulfillmentService covers the post-delivery documents a vendor manages.
type FulfillmentService interface {
	AdvanceDelivery(ctx context.Context, principal auth.Principal, deliveryID uuid.UUID, target enums.DeliveryStatus) (*models.Delivery, error)
	CancelInvoice(ctx context.Context, principal auth.Principal, invoiceID uuid.UUID) (*models.Invoice, error)
}

var _ FulfillmentService = (*sales.Service)(nil)

type reminderPreferencesRequest struct {
	Enabled *bool                `json:"enabled" validate:"required"`
	Window  enums.ReminderWindow `json:"window" validate:"required,reminder_window"`
}

type advanceDeliveryRequest struct {
	Status enums.DeliveryStatus `json:"status" validate:"required"`
}

type vendorAction func(ctx context.Context, principal auth.Principal, vendorID uuid.UUID) (*models.Vendor, error)

func vendorHandler(logg *logger.Logger, fn vendorAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := validators.ParseURLUUID(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendor, err := fn(r.Context(), principal, vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}

// VendorRequestApproval submits the calling vendor's shop for review.
func VendorRequestApproval(svc VendorsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendor, err := svc.RequestApproval(r.Context(), principal, principal.ProfileID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, vendor)
	}
}

func AdminApproveVendor(svc VendorsService, logg *logger.Logger) http.HandlerFunc {
	return vendorHandler(logg, svc.Approve)
}

func AdminRejectVendor(svc VendorsService, logg *logger.Logger) http.HandlerFunc {
	return vendorHandler(logg, svc.Reject)
}

func GetReminderPreferences(svc VendorsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		prefs, err := svc.ReminderPreferences(r.Context(), principal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, prefs)
	}
}

// UpdateReminderPreferences sets the caller's reminder toggle and window.
func UpdateReminderPreferences(svc VendorsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload reminderPreferencesRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		prefs, err := svc.UpdateReminderPreferences(r.Context(), principal, vendors.ReminderPreferences{
			Enabled: *payload.Enabled,
			Window:  payload.Window,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, prefs)
	}
}

func ListFavoriteVendors(svc VendorsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListFavorites(r.Context(), principal)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

func AddFavoriteVendor(svc VendorsService, logg *logger.Logger) http.HandlerFunc {
	return favoriteHandler(logg, svc.AddFavorite, true)
}

func RemoveFavoriteVendor(svc VendorsService, logg *logger.Logger) http.HandlerFunc {
	return favoriteHandler(logg, svc.RemoveFavorite, false)
}

func favoriteHandler(logg *logger.Logger, fn func(context.Context, auth.Principal, uuid.UUID) error, favorite bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := validators.ParseURLUUID(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := fn(r.Context(), principal, vendorID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"vendorId": vendorID, "favorite": favorite})
	}
}

// VendorAdvanceDelivery moves a delivery one step along its lifecycle.
func VendorAdvanceDelivery(svc FulfillmentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, err := middleware.RequirePrincipal(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deliveryID, err := validators.ParseURLUUID(r, "deliveryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload advanceDeliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delivery, err := svc.AdvanceDelivery(r.Context(), principal, deliveryID, payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, delivery)
	}
}

func VendorCancelInvoice(svc FulfillmentService, logg *logger.Logger) http.HandlerFunc {
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
		invoice, err := svc.CancelInvoice(r.Context(), principal, invoiceID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, invoice)
	}
}
