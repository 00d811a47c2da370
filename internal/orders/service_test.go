package orders

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/sales"
	"github.com/angelmondragon/storefront-backend/internal/stock"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var fixedNow = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

type fakeMetrics struct {
	mu                sync.Mutex
	transitions       map[string]int
	insufficientStock int
}

func (m *fakeMetrics) IncTransition(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions[status]++
}

func (m *fakeMetrics) IncInsufficientStock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insufficientStock++
}

type harness struct {
	svc     Service
	conn    *gorm.DB
	vendor  models.Vendor
	client  models.Client
	metrics *fakeMetrics
}

func newHarness(t *testing.T) harness {
	t.Helper()
	client, conn := dbtest.Client(t)

	stockSvc, err := stock.NewService(stock.NewRepository(conn))
	require.NoError(t, err)
	notifySvc, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)
	salesSvc, err := sales.NewService(sales.NewRepository(conn), client, decimal.RequireFromString("0.20"), nil)
	require.NoError(t, err)

	m := &fakeMetrics{transitions: map[string]int{}}
	svc, err := NewService(ServiceParams{
		Repo:    NewRepository(conn),
		Tx:      client,
		Stock:   stockSvc,
		Notify:  notifySvc,
		Sales:   salesSvc,
		Metrics: m,
		Logger:  logger.New(logger.Options{ServiceName: "orders-test", Output: io.Discard}),
	})
	require.NoError(t, err)
	svc.(*service).now = func() time.Time { return fixedNow }

	return harness{
		svc:     svc,
		conn:    conn,
		vendor:  dbtest.SeedVendor(t, conn),
		client:  dbtest.SeedClient(t, conn),
		metrics: m,
	}
}

func (h harness) asClient() auth.Principal {
	return auth.Principal{UserID: h.client.UserID, Role: enums.UserRoleClient, ProfileID: h.client.ID}
}

func (h harness) asVendor() auth.Principal {
	return auth.Principal{UserID: h.vendor.UserID, Role: enums.UserRoleVendor, ProfileID: h.vendor.ID}
}

func (h harness) status(t *testing.T, orderID uuid.UUID) enums.OrderStatus {
	t.Helper()
	var order models.Order
	require.NoError(t, h.conn.First(&order, "id = ?", orderID).Error)
	return order.Status
}

func (h harness) count(t *testing.T, model any, query string, args ...any) int64 {
	t.Helper()
	var n int64
	q := h.conn.Model(model)
	if query != "" {
		q = q.Where(query, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func (h harness) place(t *testing.T, lines ...LineInput) *OrderDetail {
	t.Helper()
	order, err := h.svc.Create(context.Background(), h.asClient(), CreateInput{ClientID: h.client.ID, Lines: lines})
	require.NoError(t, err)
	return order
}

func line(p models.Product, qty int) LineInput {
	return LineInput{ProductID: p.ID, Quantity: qty, UnitPrice: p.UnitPrice}
}

func TestCreateWithEmptyLinesFailsAndWritesNothing(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.Create(context.Background(), h.asClient(), CreateInput{ClientID: h.client.ID})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	assert.Zero(t, h.count(t, &models.Order{}, ""))
	assert.Zero(t, h.count(t, &models.OrderLine{}, ""))
	assert.Zero(t, h.count(t, &models.Notification{}, ""))
}

func TestCreateRejectsMalformedLines(t *testing.T) {
	h := newHarness(t)
	product := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 10, "3.00")
	for _, lines := range [][]LineInput{
		{{ProductID: uuid.Nil, Quantity: 1}},
		{{ProductID: product.ID, Quantity: 0}},
		{{ProductID: product.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}},
	} {
		_, err := h.svc.Create(context.Background(), h.asClient(), CreateInput{ClientID: h.client.ID, Lines: lines})
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "lines %+v: %v", lines, err)
	}
	assert.Zero(t, h.count(t, &models.Order{}, ""))
}

func TestCreateUnknownProductRollsBack(t *testing.T) {
	h := newHarness(t)
	product := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 10, "3.00")
	_, err := h.svc.Create(context.Background(), h.asClient(), CreateInput{
		ClientID: h.client.ID,
		Lines:    []LineInput{line(product, 1), {ProductID: uuid.New(), Quantity: 1}},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "got %v", err)
	assert.Zero(t, h.count(t, &models.Order{}, ""))
}

func TestCreatePersistsPendingOrderAndNotifiesVendor(t *testing.T) {
	h := newHarness(t)
	a := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 10, "3.00")
	b := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 4, "7.25")

	order := h.place(t, line(a, 2), LineInput{ProductID: b.ID, Quantity: 1})

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, 3, order.ArticleCount)
	require.NotNil(t, order.VendorID)
	assert.Equal(t, h.vendor.ID, *order.VendorID)
	require.Len(t, order.Lines, 2)
	assert.True(t, order.Lines[1].UnitPrice.Equal(decimal.RequireFromString("7.25")), "zero price snapshots the live price")
	assert.True(t, order.Total.Equal(decimal.RequireFromString("13.25")))

	assert.EqualValues(t, 2, h.count(t, &models.OrderLine{}, "order_id = ?", order.ID))
	assert.EqualValues(t, 1, h.count(t, &models.Notification{}, "user_id = ? AND type = ?", h.vendor.UserID, enums.NotificationTypeNewOrder))
	assert.Equal(t, 10, dbtest.ProductStock(t, h.conn, a.ID), "creation never touches stock")
	assert.Equal(t, 1, h.metrics.transitions[string(enums.OrderStatusPending)])
}

func TestCreateForAnotherClientIsForbidden(t *testing.T) {
	h := newHarness(t)
	product := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 10, "3.00")
	other := dbtest.SeedClient(t, h.conn)
	_, err := h.svc.Create(context.Background(), h.asClient(), CreateInput{ClientID: other.ID, Lines: []LineInput{line(product, 1)}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestCreateRejectsLinesFromSeveralVendors(t *testing.T) {
	h := newHarness(t)
	other := dbtest.SeedVendor(t, h.conn)
	own := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 10, "2.00")
	foreign := dbtest.SeedProduct(t, h.conn, other.ID, 10, "100.00")

	_, err := h.svc.Create(context.Background(), h.asClient(), CreateInput{
		ClientID: h.client.ID,
		Lines:    []LineInput{line(own, 1), line(foreign, 4)},
	})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	assert.Equal(t, 1, pkgerrors.As(err).Details().(map[string]any)["line"])

	assert.Zero(t, h.count(t, &models.Order{}, ""))
	assert.Zero(t, h.count(t, &models.OrderLine{}, ""))
	assert.Zero(t, h.count(t, &models.Notification{}, ""))
	assert.Equal(t, 10, dbtest.ProductStock(t, h.conn, foreign.ID))
}

func TestValidateInsufficientStockChangesNothing(t *testing.T) {
	h := newHarness(t)
	a := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 10, "2.00")
	b := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 2, "4.00")
	order := h.place(t, line(a, 5), line(b, 3))

	_, err := h.svc.Validate(context.Background(), h.asVendor(), order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "got %v", err)

	shortfalls, ok := pkgerrors.As(err).Details().([]stock.Shortfall)
	require.True(t, ok)
	require.Len(t, shortfalls, 1)
	assert.Equal(t, b.ID, shortfalls[0].ProductID)

	assert.Equal(t, 10, dbtest.ProductStock(t, h.conn, a.ID))
	assert.Equal(t, 2, dbtest.ProductStock(t, h.conn, b.ID))
	assert.Equal(t, enums.OrderStatusPending, h.status(t, order.ID))
	assert.Zero(t, h.count(t, &models.StockMovement{}, ""))
	assert.Equal(t, 1, h.metrics.insufficientStock)
}

func TestValidateDecrementsEveryLineExactlyOnce(t *testing.T) {
	h := newHarness(t)
	a := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 10, "2.00")
	b := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 30, "4.00")
	order := h.place(t, line(a, 5), line(b, 3))

	validated, err := h.svc.Validate(context.Background(), h.asVendor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusValidated, validated.Status)
	require.NotNil(t, validated.ValidatedAt)
	assert.True(t, validated.ValidatedAt.Equal(fixedNow))

	assert.Equal(t, 5, dbtest.ProductStock(t, h.conn, a.ID))
	assert.Equal(t, 27, dbtest.ProductStock(t, h.conn, b.ID))
	assert.EqualValues(t, 1, h.count(t, &models.Notification{}, "user_id = ? AND type = ?", h.client.UserID, enums.NotificationTypeConfirmation))
	assert.Zero(t, h.count(t, &models.Notification{}, "user_id = ? AND type = ?", h.vendor.UserID, enums.NotificationTypeAlert),
		"a product already at its alert threshold raises no new alert")

	_, err = h.svc.Validate(context.Background(), h.asVendor(), order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "second validation must be rejected: %v", err)
	assert.Equal(t, 5, dbtest.ProductStock(t, h.conn, a.ID))
	assert.Equal(t, 27, dbtest.ProductStock(t, h.conn, b.ID))
}

func TestConcurrentValidateDecrementsOnce(t *testing.T) {
	h := newHarness(t)
	a := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 40, "2.00")
	b := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 30, "4.00")
	order := h.place(t, line(a, 5), line(b, 3))

	const workers = 6
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = h.svc.Validate(context.Background(), h.asVendor(), order.ID)
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 35, dbtest.ProductStock(t, h.conn, a.ID))
	assert.Equal(t, 27, dbtest.ProductStock(t, h.conn, b.ID))
	assert.EqualValues(t, 2, h.count(t, &models.StockMovement{}, "reason = ?", enums.StockMovementReasonOrderValidation))
	assert.Equal(t, enums.OrderStatusValidated, h.status(t, order.ID))
}

func TestValidateRaisesAlertWhenCrossingThreshold(t *testing.T) {
	h := newHarness(t)
	product := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 12, "2.00")
	order := h.place(t, line(product, 3))

	_, err := h.svc.Validate(context.Background(), h.asVendor(), order.ID)
	require.NoError(t, err)

	var alerts []models.Notification
	require.NoError(t, h.conn.Where("user_id = ? AND type = ?", h.vendor.UserID, enums.NotificationTypeAlert).Find(&alerts).Error)
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Message, "9 left")
}

func TestValidateByForeignVendorIsForbidden(t *testing.T) {
	h := newHarness(t)
	product := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 12, "2.00")
	order := h.place(t, line(product, 1))

	stranger := dbtest.SeedVendor(t, h.conn)
	_, err := h.svc.Validate(context.Background(), auth.Principal{UserID: stranger.UserID, Role: enums.UserRoleVendor, ProfileID: stranger.ID}, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	assert.Equal(t, 12, dbtest.ProductStock(t, h.conn, product.ID))
}

func TestMarkPaidThenValidate(t *testing.T) {
	h := newHarness(t)
	product := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 40, "2.00")
	order := h.place(t, line(product, 4))

	paid, err := h.svc.MarkPaid(context.Background(), h.asClient(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPaid, paid.Status)
	require.NotNil(t, paid.PaidAt)

	_, err = h.svc.MarkPaid(context.Background(), h.asClient(), order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	validated, err := h.svc.Validate(context.Background(), h.asVendor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusValidated, validated.Status)
	assert.Equal(t, 36, dbtest.ProductStock(t, h.conn, product.ID))
}

func TestAdvanceCannotSkipStates(t *testing.T) {
	h := newHarness(t)
	product := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 40, "2.00")
	order := h.place(t, line(product, 1))
	ctx := context.Background()

	_, err := h.svc.Advance(ctx, h.asVendor(), order.ID, enums.OrderStatusPreparing)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "pending cannot jump to preparing")

	_, err = h.svc.Validate(ctx, h.asVendor(), order.ID)
	require.NoError(t, err)
	_, err = h.svc.Advance(ctx, h.asVendor(), order.ID, enums.OrderStatusPreparing)
	require.NoError(t, err)

	_, err = h.svc.Advance(ctx, h.asVendor(), order.ID, enums.OrderStatusDelivered)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "got %v", err)
	assert.Equal(t, enums.OrderStatusPreparing, h.status(t, order.ID))
	assert.Zero(t, h.count(t, &models.Sale{}, ""))

	_, err = h.svc.Advance(ctx, h.asVendor(), order.ID, enums.OrderStatusCancelled)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "advance never cancels")
}

func TestDeliveredMaterializesExactlyOneSale(t *testing.T) {
	h := newHarness(t)
	a := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 40, "2.50")
	b := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 40, "10.00")
	order := h.place(t, line(a, 4), line(b, 1))
	ctx := context.Background()

	_, err := h.svc.Validate(ctx, h.asVendor(), order.ID)
	require.NoError(t, err)
	for _, target := range enums.FulfillmentStatuses() {
		_, err := h.svc.Advance(ctx, h.asVendor(), order.ID, target)
		require.NoError(t, err, "advance to %s", target)
	}

	assert.Equal(t, enums.OrderStatusDelivered, h.status(t, order.ID))
	assert.EqualValues(t, 1, h.count(t, &models.Sale{}, "order_id = ?", order.ID))
	assert.EqualValues(t, 1, h.count(t, &models.Invoice{}, ""))
	assert.EqualValues(t, 1, h.count(t, &models.Delivery{}, "status = ?", enums.DeliveryStatusPreparing))

	var sale models.Sale
	require.NoError(t, h.conn.First(&sale, "order_id = ?", order.ID).Error)
	assert.True(t, sale.TotalAmount.Equal(decimal.RequireFromString("20.00")), sale.TotalAmount.String())

	_, err = h.svc.Advance(ctx, h.asVendor(), order.ID, enums.OrderStatusDelivered)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	assert.EqualValues(t, 1, h.count(t, &models.Sale{}, ""))
}

func TestCancelRespectsTerminalStates(t *testing.T) {
	h := newHarness(t)
	product := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 40, "2.00")
	ctx := context.Background()

	pending := h.place(t, line(product, 1))
	cancelled, err := h.svc.Cancel(ctx, h.asClient(), pending.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
	assert.EqualValues(t, 1, h.count(t, &models.Notification{}, "user_id = ? AND type = ?", h.vendor.UserID, enums.NotificationTypeInfo))

	_, err = h.svc.Cancel(ctx, h.asClient(), pending.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	delivered := dbtest.SeedOrder(t, h.conn, h.client.ID, h.vendor.ID, enums.OrderStatusDelivered, fixedNow,
		models.OrderLine{ProductID: product.ID, Quantity: 1, UnitPrice: product.UnitPrice})
	_, err = h.svc.Cancel(ctx, h.asVendor(), delivered.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	assert.Equal(t, enums.OrderStatusDelivered, h.status(t, delivered.ID))
}

func TestCancelAfterValidationRestoresStock(t *testing.T) {
	h := newHarness(t)
	a := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 20, "2.00")
	b := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 8, "4.00")
	order := h.place(t, line(a, 5), line(b, 8))
	ctx := context.Background()

	_, err := h.svc.Validate(ctx, h.asVendor(), order.ID)
	require.NoError(t, err)
	_, err = h.svc.Advance(ctx, h.asVendor(), order.ID, enums.OrderStatusPreparing)
	require.NoError(t, err)
	require.Equal(t, 15, dbtest.ProductStock(t, h.conn, a.ID))
	require.Equal(t, 0, dbtest.ProductStock(t, h.conn, b.ID))

	_, err = h.svc.Cancel(ctx, h.asVendor(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, dbtest.ProductStock(t, h.conn, a.ID))
	assert.Equal(t, 8, dbtest.ProductStock(t, h.conn, b.ID))
	assert.EqualValues(t, 2, h.count(t, &models.StockMovement{}, "reason = ?", enums.StockMovementReasonOrderCancellation))
	assert.EqualValues(t, 1, h.count(t, &models.Notification{}, "user_id = ? AND type = ?", h.client.UserID, enums.NotificationTypeInfo))
}

func TestGetAndListHonourOwnership(t *testing.T) {
	h := newHarness(t)
	product := dbtest.SeedProduct(t, h.conn, h.vendor.ID, 40, "2.00")
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		h.svc.(*service).now = func() time.Time { return fixedNow.Add(time.Duration(i) * time.Minute) }
		ids = append(ids, h.place(t, line(product, 1)).ID)
	}

	got, err := h.svc.Get(ctx, h.asVendor(), ids[0])
	require.NoError(t, err)
	assert.Len(t, got.Lines, 1)

	other := dbtest.SeedClient(t, h.conn)
	_, err = h.svc.Get(ctx, auth.Principal{UserID: other.UserID, Role: enums.UserRoleClient, ProfileID: other.ID}, ids[0])
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.Get(ctx, h.asClient(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	page, err := h.svc.ListForClient(ctx, h.asClient(), h.client.ID, ListParams{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, ids[2], page.Orders[0].ID)
	require.NotEmpty(t, page.NextCursor)

	rest, err := h.svc.ListForClient(ctx, h.asClient(), h.client.ID, ListParams{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Orders, 1)
	assert.Equal(t, ids[0], rest.Orders[0].ID)
	assert.Empty(t, rest.NextCursor)

	pending := enums.OrderStatusPending
	vendorList, err := h.svc.ListForVendor(ctx, h.asVendor(), h.vendor.ID, ListParams{Status: &pending})
	require.NoError(t, err)
	assert.Len(t, vendorList.Orders, 3)

	_, err = h.svc.ListForVendor(ctx, h.asClient(), h.vendor.ID, ListParams{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.ListForClient(ctx, h.asClient(), h.client.ID, ListParams{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
