package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/payments"
	productsvc "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/internal/vendors"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

func withPrincipal(req *http.Request, principal auth.Principal) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), principal))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

type stubNotifications struct {
	notifications.Service
	list     func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error)
	markRead func(ctx context.Context, userID, notificationID uuid.UUID) error
	markAll  func(ctx context.Context, userID uuid.UUID) (int64, error)
}

func (s *stubNotifications) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return s.list(ctx, params)
}

func (s *stubNotifications) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.markRead(ctx, userID, notificationID)
}

func (s *stubNotifications) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.markAll(ctx, userID)
}

func TestListNotificationsScopesToCaller(t *testing.T) {
	principal := auth.Principal{UserID: uuid.New(), Role: enums.UserRoleClient, ProfileID: uuid.New()}
	var got notifications.ListParams
	svc := &stubNotifications{list: func(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
		got = params
		return &notifications.ListResult{Items: []notifications.Item{}, Cursor: "abc"}, nil
	}}

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/?limit=10&unreadOnly=true&cursor=xyz", nil), principal)
	resp := httptest.NewRecorder()
	ListNotifications(svc, nil)(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, principal.UserID, got.UserID)
	assert.Equal(t, 10, got.Limit)
	assert.True(t, got.UnreadOnly)
	assert.Equal(t, "xyz", got.Cursor)

	req = withPrincipal(httptest.NewRequest(http.MethodGet, "/?unreadOnly=maybe", nil), principal)
	resp = httptest.NewRecorder()
	ListNotifications(svc, nil)(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMarkNotificationRead(t *testing.T) {
	principal := auth.Principal{UserID: uuid.New(), Role: enums.UserRoleVendor, ProfileID: uuid.New()}
	notificationID := uuid.New()
	called := false
	svc := &stubNotifications{markRead: func(ctx context.Context, userID, id uuid.UUID) error {
		called = true
		assert.Equal(t, principal.UserID, userID)
		assert.Equal(t, notificationID, id)
		return nil
	}}

	req := withURLParam(withPrincipal(httptest.NewRequest(http.MethodPost, "/", nil), principal), "notificationId", notificationID.String())
	resp := httptest.NewRecorder()
	MarkNotificationRead(svc, nil)(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, called)

	svc.markRead = func(ctx context.Context, userID, id uuid.UUID) error {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	resp = httptest.NewRecorder()
	MarkNotificationRead(svc, nil)(resp, req)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestMarkAllNotificationsRead(t *testing.T) {
	principal := auth.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	svc := &stubNotifications{markAll: func(ctx context.Context, userID uuid.UUID) (int64, error) {
		return 4, nil
	}}
	resp := httptest.NewRecorder()
	MarkAllNotificationsRead(svc, nil)(resp, withPrincipal(httptest.NewRequest(http.MethodPost, "/", nil), principal))

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data map[string]int64 `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, int64(4), envelope.Data["updated"])
}

type stubProducts struct {
	productsvc.Service
	create func(ctx context.Context, principal auth.Principal, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error)
	adjust func(ctx context.Context, principal auth.Principal, productID uuid.UUID, input productsvc.AdjustStockInput) (*productsvc.StockAdjustment, error)
}

func (s *stubProducts) Create(ctx context.Context, principal auth.Principal, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
	return s.create(ctx, principal, input)
}

func (s *stubProducts) AdjustStock(ctx context.Context, principal auth.Principal, productID uuid.UUID, input productsvc.AdjustStockInput) (*productsvc.StockAdjustment, error) {
	return s.adjust(ctx, principal, productID, input)
}

func TestVendorCreateProductTrimsInput(t *testing.T) {
	principal := auth.Principal{UserID: uuid.New(), Role: enums.UserRoleVendor, ProfileID: uuid.New()}
	var got productsvc.CreateProductInput
	svc := &stubProducts{create: func(ctx context.Context, p auth.Principal, input productsvc.CreateProductInput) (*productsvc.ProductDTO, error) {
		got = input
		return &productsvc.ProductDTO{ID: uuid.New(), Name: input.Name}, nil
	}}

	body := `{"name":"  Honey  ","unitPrice":"4.20","stock":12,"alertThreshold":6,"criticalThreshold":2}`
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)), principal)
	resp := httptest.NewRecorder()
	VendorCreateProduct(svc, nil)(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Honey", got.Name)
	assert.Equal(t, 12, got.Stock)
	require.NotNil(t, got.AlertThreshold)
	assert.Equal(t, 6, *got.AlertThreshold)
	assert.True(t, got.UnitPrice.Equal(decimal.RequireFromString("4.2")))
}

func TestVendorAdjustStockValidatesBody(t *testing.T) {
	principal := auth.Principal{UserID: uuid.New(), Role: enums.UserRoleVendor, ProfileID: uuid.New()}
	productID := uuid.New()
	svc := &stubProducts{adjust: func(ctx context.Context, p auth.Principal, id uuid.UUID, input productsvc.AdjustStockInput) (*productsvc.StockAdjustment, error) {
		assert.Equal(t, productID, id)
		assert.Equal(t, enums.StockAdjustModeSubtract, input.Mode)
		return &productsvc.StockAdjustment{}, nil
	}}

	req := withURLParam(withPrincipal(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":2,"mode":"subtract"}`)), principal), "productId", productID.String())
	resp := httptest.NewRecorder()
	VendorAdjustStock(svc, nil)(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	req = withURLParam(withPrincipal(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity":2,"mode":"double"}`)), principal), "productId", productID.String())
	resp = httptest.NewRecorder()
	VendorAdjustStock(svc, nil)(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type stubPayments struct {
	record func(ctx context.Context, principal auth.Principal, input payments.RecordInput) (*payments.RecordResult, error)
}

func (s *stubPayments) Record(ctx context.Context, principal auth.Principal, input payments.RecordInput) (*payments.RecordResult, error) {
	return s.record(ctx, principal, input)
}

func (s *stubPayments) ListByInvoice(ctx context.Context, principal auth.Principal, invoiceID uuid.UUID) ([]models.Payment, error) {
	return nil, nil
}

func TestRecordPaymentRequiresTarget(t *testing.T) {
	principal := auth.Principal{UserID: uuid.New(), Role: enums.UserRoleClient, ProfileID: uuid.New()}
	orderID := uuid.New()
	var got payments.RecordInput
	svc := &stubPayments{record: func(ctx context.Context, p auth.Principal, input payments.RecordInput) (*payments.RecordResult, error) {
		got = input
		return &payments.RecordResult{}, nil
	}}

	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":"10","mode":"card"}`)), principal)
	resp := httptest.NewRecorder()
	RecordPayment(svc, nil)(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	req = withPrincipal(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"orderId":"`+orderID.String()+`","amount":"10","mode":"card"}`)), principal)
	resp = httptest.NewRecorder()
	RecordPayment(svc, nil)(resp, req)
	require.Equal(t, http.StatusCreated, resp.Code)
	require.NotNil(t, got.OrderID)
	assert.Equal(t, orderID, *got.OrderID)
	assert.Equal(t, enums.PaymentModeCard, got.Mode)

	req = withPrincipal(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"orderId":"`+orderID.String()+`","amount":"10","mode":"barter"}`)), principal)
	resp = httptest.NewRecorder()
	RecordPayment(svc, nil)(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type stubVendors struct {
	VendorsService
	approve func(ctx context.Context, principal auth.Principal, vendorID uuid.UUID) (*models.Vendor, error)
	update  func(ctx context.Context, principal auth.Principal, prefs vendors.ReminderPreferences) (*vendors.ReminderPreferences, error)
}

func (s *stubVendors) Approve(ctx context.Context, principal auth.Principal, vendorID uuid.UUID) (*models.Vendor, error) {
	return s.approve(ctx, principal, vendorID)
}

func (s *stubVendors) UpdateReminderPreferences(ctx context.Context, principal auth.Principal, prefs vendors.ReminderPreferences) (*vendors.ReminderPreferences, error) {
	return s.update(ctx, principal, prefs)
}

func TestAdminApproveVendor(t *testing.T) {
	principal := auth.Principal{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	vendorID := uuid.New()
	svc := &stubVendors{approve: func(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Vendor, error) {
		if id != vendorID {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return &models.Vendor{ID: id, ApprovalStatus: enums.VendorApprovalStatusApproved}, nil
	}}

	req := withURLParam(withPrincipal(httptest.NewRequest(http.MethodPost, "/", nil), principal), "vendorId", vendorID.String())
	resp := httptest.NewRecorder()
	AdminApproveVendor(svc, nil)(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	req = withURLParam(withPrincipal(httptest.NewRequest(http.MethodPost, "/", nil), principal), "vendorId", "nope")
	resp = httptest.NewRecorder()
	AdminApproveVendor(svc, nil)(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateReminderPreferences(t *testing.T) {
	principal := auth.Principal{UserID: uuid.New(), Role: enums.UserRoleClient, ProfileID: uuid.New()}
	var got vendors.ReminderPreferences
	svc := &stubVendors{update: func(ctx context.Context, p auth.Principal, prefs vendors.ReminderPreferences) (*vendors.ReminderPreferences, error) {
		got = prefs
		return &prefs, nil
	}}

	req := withPrincipal(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"enabled":false,"window":"night"}`)), principal)
	resp := httptest.NewRecorder()
	UpdateReminderPreferences(svc, nil)(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.False(t, got.Enabled)
	assert.Equal(t, enums.ReminderWindowNight, got.Window)

	req = withPrincipal(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"window":"night"}`)), principal)
	resp = httptest.NewRecorder()
	UpdateReminderPreferences(svc, nil)(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	resp := httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": ok})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-Storefront-Env"))

	resp = httptest.NewRecorder()
	HealthReady(cfg, nil, map[string]Pinger{"db": ok, "redis": down})(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
