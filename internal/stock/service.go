package stock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// AdjustInput describes a manual stock change.
type AdjustInput struct {
	ProductID   uuid.UUID
	Quantity    int
	Mode        enums.StockAdjustMode
	Reason      enums.StockMovementReason
	ReferenceID *uuid.UUID
}

// Demand is a quantity of one product requested by an order line.
type Demand struct {
	ProductID uuid.UUID
	Quantity  int
}

// Shortfall reports a product that cannot cover its aggregated demand.
type Shortfall struct {
	ProductID uuid.UUID `json:"productId"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// Result is the outcome of a single stock mutation.
type Result struct {
	ProductID      uuid.UUID         `json:"productId"`
	PreviousStock  int               `json:"previousStock"`
	NewStock       int               `json:"newStock"`
	Delta          int               `json:"delta"`
	Status         enums.StockStatus `json:"status"`
	AlertThreshold int               `json:"-"`
}

// CrossedAlert reports whether this mutation took the product from above its
// alert threshold to at or below it.
func (r Result) CrossedAlert() bool {
	return r.PreviousStock > r.AlertThreshold && r.NewStock <= r.AlertThreshold
}

// Service implements the stock ledger. Every method runs against the supplied
// transaction; callers own commit and rollback.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires the stock ledger.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("stock repository required")
	}
	return &Service{repo: repo, now: time.Now}, nil
}

// Adjust adds or subtracts stock for one product. Subtraction clamps at zero.
func (s *Service) Adjust(ctx context.Context, tx *gorm.DB, input AdjustInput) (*Result, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if !input.Mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mode must be add or subtract")
	}
	reason := input.Reason
	if reason == "" {
		reason = enums.StockMovementReasonManualAdjustment
	}

	repo := s.repo.WithTx(tx)
	product, err := s.lockOne(ctx, repo, input.ProductID)
	if err != nil {
		return nil, err
	}

	next := product.Stock + input.Quantity
	if input.Mode == enums.StockAdjustModeSubtract {
		next = product.Stock - input.Quantity
		if next < 0 {
			next = 0
		}
	}
	return s.apply(ctx, repo, *product, next, reason, input.ReferenceID)
}

// DecrementAll checks every demand against locked stock and, only when all of
// them fit, decrements each in input order. Demands for the same product are
// summed before the check.
func (s *Service) DecrementAll(ctx context.Context, tx *gorm.DB, demands []Demand, referenceID *uuid.UUID) ([]Result, error) {
	if len(demands) == 0 {
		return nil, nil
	}
	repo := s.repo.WithTx(tx)
	products, err := s.lockAll(ctx, repo, demands)
	if err != nil {
		return nil, err
	}

	required := make(map[uuid.UUID]int, len(products))
	order := make([]uuid.UUID, 0, len(products))
	for _, demand := range demands {
		if demand.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if _, seen := required[demand.ProductID]; !seen {
			order = append(order, demand.ProductID)
		}
		required[demand.ProductID] += demand.Quantity
	}

	var shortfalls []Shortfall
	for _, id := range order {
		if available := products[id].Stock; available < required[id] {
			shortfalls = append(shortfalls, Shortfall{ProductID: id, Requested: required[id], Available: available})
		}
	}
	if len(shortfalls) > 0 {
		return nil, insufficientStock(shortfalls)
	}

	results := make([]Result, 0, len(demands))
	for _, demand := range demands {
		product := products[demand.ProductID]
		at := s.now().UTC()
		ok, err := repo.DecrementIfAvailable(ctx, product.ID, demand.Quantity, at)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !ok {
			return nil, insufficientStock([]Shortfall{{ProductID: product.ID, Requested: demand.Quantity, Available: product.Stock}})
		}
		result, err := s.record(ctx, repo, product, product.Stock-demand.Quantity, enums.StockMovementReasonOrderValidation, referenceID, at)
		if err != nil {
			return nil, err
		}
		product.Stock = result.NewStock
		products[demand.ProductID] = product
		results = append(results, *result)
	}
	return results, nil
}

// RestoreAll adds every demand back to stock, in input order.
func (s *Service) RestoreAll(ctx context.Context, tx *gorm.DB, demands []Demand, referenceID *uuid.UUID) ([]Result, error) {
	if len(demands) == 0 {
		return nil, nil
	}
	repo := s.repo.WithTx(tx)
	products, err := s.lockAll(ctx, repo, demands)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(demands))
	for _, demand := range demands {
		if demand.Quantity <= 0 {
			continue
		}
		product := products[demand.ProductID]
		result, err := s.apply(ctx, repo, product, product.Stock+demand.Quantity, enums.StockMovementReasonOrderCancellation, referenceID)
		if err != nil {
			return nil, err
		}
		product.Stock = result.NewStock
		products[demand.ProductID] = product
		results = append(results, *result)
	}
	return results, nil
}

// Movements lists the audit trail for a product, oldest first.
func (s *Service) Movements(ctx context.Context, productID uuid.UUID) ([]models.StockMovement, error) {
	rows, err := s.repo.ListMovements(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock movements")
	}
	return rows, nil
}

func (s *Service) apply(ctx context.Context, repo Repository, product models.Product, next int, reason enums.StockMovementReason, referenceID *uuid.UUID) (*Result, error) {
	at := s.now().UTC()
	ok, err := repo.CompareAndSetStock(ctx, product.ID, product.Stock, next, at)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "stock changed concurrently").
			WithDetails(map[string]any{"productId": product.ID})
	}
	return s.record(ctx, repo, product, next, reason, referenceID, at)
}

func (s *Service) record(ctx context.Context, repo Repository, product models.Product, next int, reason enums.StockMovementReason, referenceID *uuid.UUID, at time.Time) (*Result, error) {
	movement := &models.StockMovement{
		ProductID:     product.ID,
		Reason:        reason,
		Delta:         next - product.Stock,
		PreviousStock: product.Stock,
		NewStock:      next,
		ReferenceID:   referenceID,
		CreatedAt:     at,
	}
	if err := repo.CreateMovement(ctx, movement); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record stock movement")
	}
	return &Result{
		ProductID:      product.ID,
		PreviousStock:  product.Stock,
		NewStock:       next,
		Delta:          movement.Delta,
		Status:         DeriveStatus(next, product.CriticalThreshold),
		AlertThreshold: product.AlertThreshold,
	}, nil
}

func (s *Service) lockOne(ctx context.Context, repo Repository, productID uuid.UUID) (*models.Product, error) {
	rows, err := repo.LockProducts(ctx, []uuid.UUID{productID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock product")
	}
	if len(rows) == 0 {
		return nil, pkgerrors.NotFound("product")
	}
	return &rows[0], nil
}

func (s *Service) lockAll(ctx context.Context, repo Repository, demands []Demand) (map[uuid.UUID]models.Product, error) {
	ids := make([]uuid.UUID, 0, len(demands))
	seen := make(map[uuid.UUID]struct{}, len(demands))
	for _, demand := range demands {
		if _, ok := seen[demand.ProductID]; ok {
			continue
		}
		seen[demand.ProductID] = struct{}{}
		ids = append(ids, demand.ProductID)
	}
	rows, err := repo.LockProducts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock products")
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

func insufficientStock(shortfalls []Shortfall) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for one or more lines").
		WithDetails(shortfalls)
}
