package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/storefront-backend/api/controllers/orders"
	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	products "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/sales"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

// SalesService covers the sale lookups and the post-delivery documents.
type SalesService interface {
	GetSaleByOrder(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*sales.Record, error)
	controllers.FulfillmentService
}

// Services bundles the domain services the router exposes.
type Services struct {
	Orders        orders.Service
	Sales         SalesService
	Payments      controllers.PaymentsService
	Notifications notifications.Service
	Products      products.Service
	Vendors       controllers.VendorsService
}

// Observability carries the metrics plumbing. A nil Gatherer disables /metrics.
type Observability struct {
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	obs Observability,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Logging(logg, obs.HTTP),
		middleware.Recoverer(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	if obs.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(obs.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/orders/{orderId}", ordercontrollers.Detail(svc.Orders, logg))
		r.Get("/orders/{orderId}/sale", ordercontrollers.Sale(svc.Sales, logg))
		r.Get("/invoices/{invoiceId}/payments", controllers.ListInvoicePayments(svc.Payments, logg))
		r.Get("/products/{productId}", controllers.GetProduct(svc.Products, logg))
		r.Get("/vendors/{vendorId}/products", controllers.ListVendorProducts(svc.Products, logg))

		r.Get("/notifications", controllers.ListNotifications(svc.Notifications, logg))
		r.Get("/notifications/unread-count", controllers.UnreadNotificationCount(svc.Notifications, logg))
		r.Post("/notifications/read-all", controllers.MarkAllNotificationsRead(svc.Notifications, logg))
		r.Post("/notifications/{notificationId}/read", controllers.MarkNotificationRead(svc.Notifications, logg))

		r.Get("/me/reminders", controllers.GetReminderPreferences(svc.Vendors, logg))
		r.Put("/me/reminders", controllers.UpdateReminderPreferences(svc.Vendors, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleClient, enums.UserRoleAdmin))
			r.Post("/orders", ordercontrollers.Create(svc.Orders, logg))
			r.Get("/orders", ordercontrollers.ListForClient(svc.Orders, logg))
			r.Post("/orders/{orderId}/pay", ordercontrollers.Pay(svc.Orders, logg))
			r.Post("/orders/{orderId}/cancel", ordercontrollers.Cancel(svc.Orders, logg))
			r.Post("/payments", controllers.RecordPayment(svc.Payments, logg))

			r.Get("/favorites/vendors", controllers.ListFavoriteVendors(svc.Vendors, logg))
			r.Put("/favorites/vendors/{vendorId}", controllers.AddFavoriteVendor(svc.Vendors, logg))
			r.Delete("/favorites/vendors/{vendorId}", controllers.RemoveFavoriteVendor(svc.Vendors, logg))
		})

		r.Route("/vendor", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.UserRoleVendor))
			r.Get("/orders", ordercontrollers.ListForVendor(svc.Orders, logg))
			r.Post("/orders/{orderId}/validate", ordercontrollers.Validate(svc.Orders, logg))
			r.Post("/orders/{orderId}/advance", ordercontrollers.Advance(svc.Orders, logg))
			r.Post("/orders/{orderId}/cancel", ordercontrollers.Cancel(svc.Orders, logg))
			r.Post("/products", controllers.VendorCreateProduct(svc.Products, logg))
			r.Post("/products/{productId}/stock", controllers.VendorAdjustStock(svc.Products, logg))
			r.Post("/approval-request", controllers.VendorRequestApproval(svc.Vendors, logg))
			r.Post("/deliveries/{deliveryId}/advance", controllers.VendorAdvanceDelivery(svc.Sales, logg))
			r.Post("/invoices/{invoiceId}/cancel", controllers.VendorCancelInvoice(svc.Sales, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(logg, enums.UserRoleAdmin))
		r.Post("/vendors/{vendorId}/approve", controllers.AdminApproveVendor(svc.Vendors, logg))
		r.Post("/vendors/{vendorId}/reject", controllers.AdminRejectVendor(svc.Vendors, logg))
		r.Post("/orders/{orderId}/cancel", ordercontrollers.Cancel(svc.Orders, logg))
	})

	return r
}
