// Package catalog keeps the default product categories and units present.
package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var (
	DefaultCategories = []string{"Groceries", "Beverages", "Household", "Personal care", "Electronics", "Other"}
	DefaultUnits      = []string{"piece", "kg", "g", "litre", "ml", "pack"}
)

// Result counts the rows inserted by one EnsureDefaults call.
type Result struct {
	CategoriesCreated int64
	UnitsCreated      int64
}

// Seeder upserts the default catalogue by name.
type Seeder struct {
	db   *gorm.DB
	logg *logger.Logger
}

func NewSeeder(db *gorm.DB, logg *logger.Logger) (*Seeder, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Seeder{db: db, logg: logg}, nil
}

// EnsureDefaults inserts every default category and unit whose name is
// absent. Running it again inserts nothing.
func (s *Seeder) EnsureDefaults(ctx context.Context) (Result, error) {
	var result Result
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, name := range DefaultCategories {
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
				Create(&models.Category{ID: uuid.New(), Name: name})
			if res.Error != nil {
				return fmt.Errorf("seed category %q: %w", name, res.Error)
			}
			result.CategoriesCreated += res.RowsAffected
		}
		for _, name := range DefaultUnits {
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
				Create(&models.Unit{ID: uuid.New(), Name: name})
			if res.Error != nil {
				return fmt.Errorf("seed unit %q: %w", name, res.Error)
			}
			result.UnitsCreated += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"categories_created": result.CategoriesCreated,
		"units_created":      result.UnitsCreated,
	})
	s.logg.Info(logCtx, "catalog defaults ensured")
	return result, nil
}
