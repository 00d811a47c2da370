package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/stock"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Service drives the order lifecycle.
type Service interface {
	Create(ctx context.Context, principal auth.Principal, input CreateInput) (*OrderDetail, error)
	MarkPaid(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderDetail, error)
	Validate(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderDetail, error)
	Advance(ctx context.Context, principal auth.Principal, orderID uuid.UUID, target enums.OrderStatus) (*OrderDetail, error)
	Cancel(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderDetail, error)
	Get(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderDetail, error)
	ListForClient(ctx context.Context, principal auth.Principal, clientID uuid.UUID, params ListParams) (*OrderList, error)
	ListForVendor(ctx context.Context, principal auth.Principal, vendorID uuid.UUID, params ListParams) (*OrderList, error)
}

// ServiceParams groups the collaborators of the order service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Stock   stockLedger
	Notify  notifier
	Sales   saleMaterializer
	Metrics transitionMetrics
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	tx      txRunner
	stock   stockLedger
	notify  notifier
	sales   saleMaterializer
	metrics transitionMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Sales == nil {
		return nil, fmt.Errorf("sales materializer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		stock:   params.Stock,
		notify:  params.Notify,
		sales:   params.Sales,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, principal auth.Principal, input CreateInput) (*OrderDetail, error) {
	if input.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	if !principal.IsAdmin() && !principal.IsClient(input.ClientID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "orders can only be placed for your own account")
	}
	if err := validateLines(input.Lines); err != nil {
		return nil, err
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		products, err := s.loadProducts(ctx, repo, input.Lines)
		if err != nil {
			return err
		}

		vendorID := products[input.Lines[0].ProductID].VendorID
		for i, line := range input.Lines {
			if products[line.ProductID].VendorID != vendorID {
				return pkgerrors.New(pkgerrors.CodeValidation, "all products in an order must come from one vendor").
					WithDetails(map[string]any{"line": i, "productId": line.ProductID})
			}
		}

		now := s.now().UTC()
		order := &models.Order{
			ID:        uuid.New(),
			ClientID:  input.ClientID,
			VendorID:  &vendorID,
			Status:    enums.OrderStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		for i, line := range input.Lines {
			price := line.UnitPrice
			if price.IsZero() {
				price = products[line.ProductID].UnitPrice
			}
			order.ArticleCount += line.Quantity
			order.Lines = append(order.Lines, models.OrderLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: price.Round(2),
				Position:  i,
			})
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if err := s.notifyVendor(ctx, tx, repo, vendorID, order.ID, enums.NotificationTypeNewOrder,
			fmt.Sprintf("New order %s with %d article(s)", shortID(order.ID), order.ArticleCount)); err != nil {
			return err
		}
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, created.ID, "", enums.OrderStatusPending)
	return detail(*created), nil
}

func (s *service) MarkPaid(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderDetail, error) {
	return s.transition(ctx, orderID, enums.OrderStatusPaid, func(order *models.Order) error {
		if !principal.IsAdmin() && !principal.IsClient(order.ClientID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to client")
		}
		return nil
	}, nil)
}

// Validate checks every line against locked stock and decrements all of them
// or none. Products that drop to their alert threshold raise a vendor alert.
func (s *service) Validate(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderDetail, error) {
	return s.transition(ctx, orderID, enums.OrderStatusValidated, vendorOwns(principal), func(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) error {
		demands := make([]stock.Demand, 0, len(order.Lines))
		for _, line := range order.Lines {
			demands = append(demands, stock.Demand{ProductID: line.ProductID, Quantity: line.Quantity})
		}
		results, err := s.stock.DecrementAll(ctx, tx, demands, &order.ID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) && s.metrics != nil {
				s.metrics.IncInsufficientStock()
			}
			return err
		}

		clientUserID, err := repo.ClientUserID(ctx, order.ClientID)
		if err != nil {
			return db.LookupError(err, "client")
		}
		if _, err := s.notify.Notify(ctx, tx, notifications.NotifyInput{
			UserID:  clientUserID,
			Type:    enums.NotificationTypeConfirmation,
			Message: fmt.Sprintf("Your order %s has been confirmed", shortID(order.ID)),
			OrderID: &order.ID,
		}); err != nil {
			return err
		}

		alerted := make(map[uuid.UUID]struct{})
		for _, result := range results {
			if !result.CrossedAlert() {
				continue
			}
			if _, ok := alerted[result.ProductID]; ok {
				continue
			}
			alerted[result.ProductID] = struct{}{}
			if err := s.notifyVendor(ctx, tx, repo, *order.VendorID, order.ID, enums.NotificationTypeAlert,
				fmt.Sprintf("Product %s is low on stock (%d left)", shortID(result.ProductID), result.NewStock)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Advance moves an order exactly one step along validated → preparing →
// shipped → delivered. Reaching delivered materializes the sale.
func (s *service) Advance(ctx context.Context, principal auth.Principal, orderID uuid.UUID, target enums.OrderStatus) (*OrderDetail, error) {
	if !isFulfillmentStatus(target) {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "advance only moves through preparing, shipped and delivered").
			WithDetails(map[string]any{"to": target})
	}
	var after afterTransition
	if target == enums.OrderStatusDelivered {
		after = func(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) error {
			_, err := s.sales.Materialize(ctx, tx, order)
			return err
		}
	}
	return s.transition(ctx, orderID, target, vendorOwns(principal), after)
}

// Cancel is allowed from any non-terminal state. Stock decremented by a
// prior validation is put back.
func (s *service) Cancel(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderDetail, error) {
	authorize := func(order *models.Order) error {
		if principal.IsAdmin() || principal.IsClient(order.ClientID) {
			return nil
		}
		if order.VendorID != nil && principal.IsVendor(*order.VendorID) {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeForbidden, "order not accessible")
	}
	return s.transition(ctx, orderID, enums.OrderStatusCancelled, authorize, func(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) error {
		if order.ValidatedAt != nil {
			demands := make([]stock.Demand, 0, len(order.Lines))
			for _, line := range order.Lines {
				demands = append(demands, stock.Demand{ProductID: line.ProductID, Quantity: line.Quantity})
			}
			if _, err := s.stock.RestoreAll(ctx, tx, demands, &order.ID); err != nil {
				return err
			}
		}

		message := fmt.Sprintf("Order %s was cancelled", shortID(order.ID))
		if principal.IsClient(order.ClientID) {
			if order.VendorID == nil {
				return nil
			}
			return s.notifyVendor(ctx, tx, repo, *order.VendorID, order.ID, enums.NotificationTypeInfo, message)
		}
		clientUserID, err := repo.ClientUserID(ctx, order.ClientID)
		if err != nil {
			return db.LookupError(err, "client")
		}
		_, err = s.notify.Notify(ctx, tx, notifications.NotifyInput{
			UserID:  clientUserID,
			Type:    enums.NotificationTypeInfo,
			Message: message,
			OrderID: &order.ID,
		})
		return err
	})
}

func (s *service) Get(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, db.LookupError(err, "order")
	}
	if !canView(principal, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order not accessible")
	}
	return detail(*order), nil
}

func (s *service) ListForClient(ctx context.Context, principal auth.Principal, clientID uuid.UUID, params ListParams) (*OrderList, error) {
	if !principal.IsAdmin() && !principal.IsClient(clientID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "orders not accessible")
	}
	query, err := toListParams(params)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListForClient(ctx, clientID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list client orders")
	}
	return toOrderList(rows, next), nil
}

func (s *service) ListForVendor(ctx context.Context, principal auth.Principal, vendorID uuid.UUID, params ListParams) (*OrderList, error) {
	if !principal.IsAdmin() && !principal.IsVendor(vendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "orders not accessible")
	}
	query, err := toListParams(params)
	if err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListForVendor(ctx, vendorID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor orders")
	}
	return toOrderList(rows, next), nil
}

type afterTransition func(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) error

// transition locks the order, checks the move against the state table, runs
// the side effects and flips the status, all in one transaction.
func (s *service) transition(ctx context.Context, orderID uuid.UUID, target enums.OrderStatus, authorize func(*models.Order) error, after afterTransition) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var (
		result *models.Order
		from   enums.OrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, orderID)
		if err != nil {
			return db.LookupError(err, "order")
		}
		if err := authorize(order); err != nil {
			return err
		}
		if !order.Status.CanTransitionTo(target) {
			return pkgerrors.InvalidTransition("order", order.Status, target)
		}

		now := s.now().UTC()
		from = order.Status
		ok, err := repo.UpdateStatus(ctx, order.ID, from, target, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
		}
		applyStatus(order, target, now)

		if after != nil {
			if err := after(ctx, tx, repo, order); err != nil {
				return err
			}
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordTransition(ctx, result.ID, from, target)
	return detail(*result), nil
}

func (s *service) loadProducts(ctx context.Context, repo Repository, lines []LineInput) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	rows, err := repo.FindProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	products := make(map[uuid.UUID]models.Product, len(rows))
	for _, row := range rows {
		products[row.ID] = row
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"productId": id})
		}
	}
	return products, nil
}

func (s *service) notifyVendor(ctx context.Context, tx *gorm.DB, repo Repository, vendorID, orderID uuid.UUID, typ enums.NotificationType, message string) error {
	userID, err := repo.VendorUserID(ctx, vendorID)
	if err != nil {
		return db.LookupError(err, "vendor")
	}
	_, err = s.notify.Notify(ctx, tx, notifications.NotifyInput{
		UserID:  userID,
		Type:    typ,
		Message: message,
		OrderID: &orderID,
	})
	return err
}

func (s *service) recordTransition(ctx context.Context, orderID uuid.UUID, from, to enums.OrderStatus) {
	if s.metrics != nil {
		s.metrics.IncTransition(string(to))
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"from": string(from),
		"to":   string(to),
	})
	s.logg.Info(logCtx, "order status changed")
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one product")
	}
	for i, line := range lines {
		switch {
		case line.ProductID == uuid.Nil:
			return lineError(i, "product id required")
		case line.Quantity <= 0:
			return lineError(i, "quantity must be positive")
		case line.UnitPrice.IsNegative():
			return lineError(i, "unit price must not be negative")
		}
	}
	return nil
}

func lineError(index int, message string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).WithDetails(map[string]any{"line": index})
}

func vendorOwns(principal auth.Principal) func(*models.Order) error {
	return func(order *models.Order) error {
		if principal.IsAdmin() {
			return nil
		}
		if order.VendorID == nil || !principal.IsVendor(*order.VendorID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to vendor")
		}
		return nil
	}
}

func canView(principal auth.Principal, order *models.Order) bool {
	if principal.IsAdmin() || principal.IsClient(order.ClientID) {
		return true
	}
	return order.VendorID != nil && principal.IsVendor(*order.VendorID)
}

func applyStatus(order *models.Order, status enums.OrderStatus, at time.Time) {
	order.Status = status
	order.UpdatedAt = at
	switch status {
	case enums.OrderStatusPaid:
		order.PaidAt = &at
	case enums.OrderStatusValidated:
		order.ValidatedAt = &at
	case enums.OrderStatusDelivered:
		order.DeliveredAt = &at
	case enums.OrderStatusCancelled:
		order.CancelledAt = &at
	}
}

func isFulfillmentStatus(status enums.OrderStatus) bool {
	for _, candidate := range enums.FulfillmentStatuses() {
		if candidate == status {
			return true
		}
	}
	return false
}

func toListParams(params ListParams) (listOrdersParams, error) {
	query := listOrdersParams{Limit: params.Limit, Status: params.Status}
	if params.Status != nil && !params.Status.IsValid() {
		return query, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	return query, nil
}

func toOrderList(rows []models.Order, next *pagination.Cursor) *OrderList {
	list := &OrderList{Orders: make([]OrderSummary, 0, len(rows))}
	for _, row := range rows {
		list.Orders = append(list.Orders, summarize(row))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

