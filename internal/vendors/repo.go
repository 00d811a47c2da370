package vendors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository persists vendor approval state, user reminder preferences and
// client favorites.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	LockVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	SetApprovalStatus(ctx context.Context, vendorID uuid.UUID, status enums.VendorApprovalStatus) error
	AdminUserIDs(ctx context.Context) ([]uuid.UUID, error)
	FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateReminderPreferences(ctx context.Context, userID uuid.UUID, enabled bool, window enums.ReminderWindow) error
	AddFavorite(ctx context.Context, clientID, vendorID uuid.UUID) error
	RemoveFavorite(ctx context.Context, clientID, vendorID uuid.UUID) (bool, error)
	ListFavorites(ctx context.Context, clientID uuid.UUID) ([]models.Vendor, error)
	FavoritingClientUserIDs(ctx context.Context, vendorID uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the vendors repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).Where("id = ?", vendorID).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) LockVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", vendorID).
		First(&vendor).Error
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *repository) SetApprovalStatus(ctx context.Context, vendorID uuid.UUID, status enums.VendorApprovalStatus) error {
	result := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		Update("approval_status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) AdminUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", enums.UserRoleAdmin).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) FindUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) UpdateReminderPreferences(ctx context.Context, userID uuid.UUID, enabled bool, window enums.ReminderWindow) error {
	result := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"reminders_enabled": enabled,
			"reminder_window":   window,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddFavorite ignores an existing pair.
func (r *repository) AddFavorite(ctx context.Context, clientID, vendorID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ClientFavoriteVendor{ClientID: clientID, VendorID: vendorID}).Error
}

func (r *repository) RemoveFavorite(ctx context.Context, clientID, vendorID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("client_id = ? AND vendor_id = ?", clientID, vendorID).
		Delete(&models.ClientFavoriteVendor{})
	return result.RowsAffected > 0, result.Error
}

func (r *repository) ListFavorites(ctx context.Context, clientID uuid.UUID) ([]models.Vendor, error) {
	var vendors []models.Vendor
	err := r.db.WithContext(ctx).
		Table("vendors v").
		Select("v.*").
		Joins("JOIN client_favorite_vendors f ON f.vendor_id = v.id").
		Where("f.client_id = ?", clientID).
		Order("f.created_at DESC, v.id DESC").
		Scan(&vendors).Error
	return vendors, err
}

func (r *repository) FavoritingClientUserIDs(ctx context.Context, vendorID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("client_favorite_vendors f").
		Joins("JOIN clients c ON c.id = f.client_id").
		Where("f.vendor_id = ?", vendorID).
		Order("f.created_at ASC, c.user_id ASC").
		Pluck("c.user_id", &ids).Error
	return ids, err
}
