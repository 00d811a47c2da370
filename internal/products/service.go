package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
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

// Service exposes vendor product management operations.
type Service interface {
	Create(ctx context.Context, principal auth.Principal, input CreateProductInput) (*ProductDTO, error)
	Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, params ListProductsInput) (*ProductList, error)
	AdjustStock(ctx context.Context, principal auth.Principal, productID uuid.UUID, input AdjustStockInput) (*StockAdjustment, error)
}

// CreateProductInput holds the payload to create a product. Nil thresholds
// fall back to the defaults.
type CreateProductInput struct {
	Name              string
	Description       *string
	ImageURL          *string
	UnitPrice         decimal.Decimal
	Stock             int
	AlertThreshold    *int
	CriticalThreshold *int
	CategoryID        *uuid.UUID
	UnitID            *uuid.UUID
}

// ListProductsInput pages through a vendor's catalogue.
type ListProductsInput struct {
	Limit  int
	Cursor string
}

// AdjustStockInput is a manual add or subtract on one product.
type AdjustStockInput struct {
	Quantity int
	Mode     enums.StockAdjustMode
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type stockAdjuster interface {
	Adjust(ctx context.Context, tx *gorm.DB, input stock.AdjustInput) (*stock.Result, error)
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, input notifications.NotifyInput) (*models.Notification, error)
}

type favoritesLookup interface {
	FavoritingClientUserIDs(ctx context.Context, vendorID uuid.UUID) ([]uuid.UUID, error)
}

// ServiceParams wires the product service.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Stock     stockAdjuster
	Notify    notifier
	Favorites favoritesLookup
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	tx        txRunner
	stock     stockAdjuster
	notify    notifier
	favorites favoritesLookup
	logg      *logger.Logger
}

// NewService constructs a product service instance.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repo == nil:
		return nil, fmt.Errorf("product repository required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Stock == nil:
		return nil, fmt.Errorf("stock ledger required")
	case params.Notify == nil:
		return nil, fmt.Errorf("notifier required")
	case params.Favorites == nil:
		return nil, fmt.Errorf("favorites lookup required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		stock:     params.Stock,
		notify:    params.Notify,
		favorites: params.Favorites,
		logg:      params.Logger,
	}, nil
}

// Create lists a new product for the calling vendor and tells the clients
// who follow that vendor.
func (s *service) Create(ctx context.Context, principal auth.Principal, input CreateProductInput) (*ProductDTO, error) {
	if principal.Role != enums.UserRoleVendor || principal.ProfileID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor access required")
	}
	vendorID := principal.ProfileID

	alert := models.DefaultAlertThreshold
	if input.AlertThreshold != nil {
		alert = *input.AlertThreshold
	}
	critical := models.DefaultCriticalThreshold
	if input.CriticalThreshold != nil {
		critical = *input.CriticalThreshold
	}
	name := strings.TrimSpace(input.Name)
	if err := validateProduct(name, input.UnitPrice, input.Stock, alert, critical); err != nil {
		return nil, err
	}

	vendor, err := s.repo.FindVendor(ctx, vendorID)
	if err != nil {
		return nil, db.LookupError(err, "vendor")
	}
	if vendor.ApprovalStatus != enums.VendorApprovalStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor is not approved")
	}
	if err := s.ensureCatalogRefs(ctx, input.CategoryID, input.UnitID); err != nil {
		return nil, err
	}

	product := models.Product{
		ID:                uuid.New(),
		VendorID:          vendorID,
		CategoryID:        input.CategoryID,
		UnitID:            input.UnitID,
		Name:              name,
		Description:       input.Description,
		ImageURL:          input.ImageURL,
		UnitPrice:         input.UnitPrice.Round(2),
		Stock:             input.Stock,
		AlertThreshold:    alert,
		CriticalThreshold: critical,
	}
	followers, err := s.favorites.FavoritingClientUserIDs(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor followers")
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateProduct(ctx, &product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert product")
		}
		message := fmt.Sprintf("%s added a new product: %s", vendor.ShopName, product.Name)
		for _, userID := range followers {
			if _, err := s.notify.Notify(ctx, tx, notifications.NotifyInput{
				UserID:  userID,
				Type:    enums.NotificationTypeNewProduct,
				Message: message,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"vendor_id":  vendorID.String(),
		"product_id": product.ID.String(),
	})
	s.logg.Info(logCtx, "product created")
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, db.LookupError(err, "product")
	}
	dto := NewProductDTO(*product)
	return &dto, nil
}

func (s *service) ListByVendor(ctx context.Context, vendorID uuid.UUID, params ListProductsInput) (*ProductList, error) {
	query := listProductsParams{Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}
	rows, next, err := s.repo.ListByVendor(ctx, vendorID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	list := &ProductList{Products: make([]ProductDTO, 0, len(rows))}
	for _, row := range rows {
		list.Products = append(list.Products, NewProductDTO(row))
	}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

// AdjustStock applies a manual change through the stock ledger. Only the
// owning vendor or an admin may adjust. Crossing the alert threshold alerts
// the vendor.
func (s *service) AdjustStock(ctx context.Context, principal auth.Principal, productID uuid.UUID, input AdjustStockInput) (*StockAdjustment, error) {
	var result *stock.Result
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := repo.FindProduct(ctx, productID)
		if err != nil {
			return db.LookupError(err, "product")
		}
		if !principal.IsAdmin() && !principal.IsVendor(product.VendorID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "product not owned by vendor")
		}
		res, err := s.stock.Adjust(ctx, tx, stock.AdjustInput{
			ProductID: productID,
			Quantity:  input.Quantity,
			Mode:      input.Mode,
			Reason:    enums.StockMovementReasonManualAdjustment,
		})
		if err != nil {
			return err
		}
		if res.CrossedAlert() {
			vendor, err := repo.FindVendor(ctx, product.VendorID)
			if err != nil {
				return db.LookupError(err, "vendor")
			}
			if _, err := s.notify.Notify(ctx, tx, notifications.NotifyInput{
				UserID:  vendor.UserID,
				Type:    enums.NotificationTypeAlert,
				Message: fmt.Sprintf("Product %s is low on stock (%d left)", product.Name, res.NewStock),
			}); err != nil {
				return err
			}
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"product_id": productID.String(),
		"mode":       input.Mode,
		"delta":      result.Delta,
	})
	s.logg.Info(logCtx, "stock adjusted")
	return &StockAdjustment{Result: *result, Display: result.Status.Display()}, nil
}

func (s *service) ensureCatalogRefs(ctx context.Context, categoryID, unitID *uuid.UUID) error {
	if categoryID != nil {
		ok, err := s.repo.CategoryExists(ctx, *categoryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load category")
		}
		if !ok {
			return pkgerrors.NotFound("category")
		}
	}
	if unitID != nil {
		ok, err := s.repo.UnitExists(ctx, *unitID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit")
		}
		if !ok {
			return pkgerrors.NotFound("unit")
		}
	}
	return nil
}

func validateProduct(name string, price decimal.Decimal, stockQty, alert, critical int) error {
	fields := map[string]any{}
	if name == "" {
		fields["name"] = "required"
	}
	if price.IsNegative() {
		fields["unit_price"] = "must not be negative"
	}
	if stockQty < 0 {
		fields["stock"] = "must not be negative"
	}
	if alert < 0 {
		fields["alert_threshold"] = "must not be negative"
	}
	if critical < 0 {
		fields["critical_threshold"] = "must not be negative"
	}
	if critical >= alert && alert >= 0 && critical >= 0 {
		fields["critical_threshold"] = "must be below alert_threshold"
	}
	if len(fields) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product").WithDetails(fields)
	}
	return nil
}
