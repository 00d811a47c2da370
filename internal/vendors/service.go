package vendors

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, input notifications.NotifyInput) (*models.Notification, error)
}

// ReminderPreferences is the reminder configuration of one user.
type ReminderPreferences struct {
	Enabled bool                 `json:"enabled"`
	Window  enums.ReminderWindow `json:"window"`
}

// Service covers vendor approval, reminder preferences and client favorites.
type Service struct {
	repo   Repository
	tx     txRunner
	notify notifier
	logg   *logger.Logger
}

func NewService(repo Repository, tx txRunner, notify notifier, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendors repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, tx: tx, notify: notify, logg: logg}, nil
}

// RequestApproval puts the vendor back in review and tells every admin.
// Approved vendors cannot request again.
func (s *Service) RequestApproval(ctx context.Context, principal auth.Principal, vendorID uuid.UUID) (*models.Vendor, error) {
	if !principal.IsAdmin() && !principal.IsVendor(vendorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor access required")
	}
	var vendor *models.Vendor
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockVendor(ctx, vendorID)
		if err != nil {
			return db.LookupError(err, "vendor")
		}
		if current.ApprovalStatus == enums.VendorApprovalStatusApproved {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, "vendor already approved")
		}
		if current.ApprovalStatus != enums.VendorApprovalStatusPending {
			if err := repo.SetApprovalStatus(ctx, vendorID, enums.VendorApprovalStatusPending); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset approval status")
			}
			current.ApprovalStatus = enums.VendorApprovalStatusPending
		}

		admins, err := repo.AdminUserIDs(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list admins")
		}
		message := fmt.Sprintf("Vendor %s is requesting approval", current.ShopName)
		for _, adminID := range admins {
			if _, err := s.notify.Notify(ctx, tx, notifications.NotifyInput{
				UserID:  adminID,
				Type:    enums.NotificationTypeVendorRequest,
				Message: message,
			}); err != nil {
				return err
			}
		}
		vendor = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithField(ctx, "vendor_id", vendorID.String())
	s.logg.Info(logCtx, "vendor approval requested")
	return vendor, nil
}

// Approve moves a pending vendor to approved.
func (s *Service) Approve(ctx context.Context, principal auth.Principal, vendorID uuid.UUID) (*models.Vendor, error) {
	return s.review(ctx, principal, vendorID, enums.VendorApprovalStatusApproved)
}

// Reject moves a pending vendor to rejected.
func (s *Service) Reject(ctx context.Context, principal auth.Principal, vendorID uuid.UUID) (*models.Vendor, error) {
	return s.review(ctx, principal, vendorID, enums.VendorApprovalStatusRejected)
}

func (s *Service) review(ctx context.Context, principal auth.Principal, vendorID uuid.UUID, target enums.VendorApprovalStatus) (*models.Vendor, error) {
	if !principal.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required")
	}
	notificationType := enums.NotificationTypeVendorApproval
	message := "Your shop %s has been approved"
	if target == enums.VendorApprovalStatusRejected {
		notificationType = enums.NotificationTypeVendorRejection
		message = "Your shop %s has been rejected"
	}

	var vendor *models.Vendor
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.LockVendor(ctx, vendorID)
		if err != nil {
			return db.LookupError(err, "vendor")
		}
		if current.ApprovalStatus != enums.VendorApprovalStatusPending {
			return pkgerrors.InvalidTransition("vendor", current.ApprovalStatus, target)
		}
		if err := repo.SetApprovalStatus(ctx, vendorID, target); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update approval status")
		}
		current.ApprovalStatus = target
		if _, err := s.notify.Notify(ctx, tx, notifications.NotifyInput{
			UserID:  current.UserID,
			Type:    notificationType,
			Message: fmt.Sprintf(message, current.ShopName),
		}); err != nil {
			return err
		}
		vendor = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"vendor_id": vendorID.String(),
		"status":    target.String(),
	})
	s.logg.Info(logCtx, "vendor reviewed")
	return vendor, nil
}

// ReminderPreferences returns the caller's current settings.
func (s *Service) ReminderPreferences(ctx context.Context, principal auth.Principal) (*ReminderPreferences, error) {
	user, err := s.repo.FindUser(ctx, principal.UserID)
	if err != nil {
		return nil, db.LookupError(err, "user")
	}
	return &ReminderPreferences{Enabled: user.RemindersEnabled, Window: user.ReminderWindow}, nil
}

// UpdateReminderPreferences stores the caller's reminder toggle and window.
func (s *Service) UpdateReminderPreferences(ctx context.Context, principal auth.Principal, prefs ReminderPreferences) (*ReminderPreferences, error) {
	if principal.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user required")
	}
	if !prefs.Window.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid reminder window").
			WithDetails(map[string]any{"window": prefs.Window})
	}
	if err := s.repo.UpdateReminderPreferences(ctx, principal.UserID, prefs.Enabled, prefs.Window); err != nil {
		return nil, db.LookupError(err, "user")
	}
	return &prefs, nil
}

// AddFavorite records that the calling client follows vendorID.
func (s *Service) AddFavorite(ctx context.Context, principal auth.Principal, vendorID uuid.UUID) error {
	clientID, err := clientOf(principal)
	if err != nil {
		return err
	}
	if _, err := s.repo.FindVendor(ctx, vendorID); err != nil {
		return db.LookupError(err, "vendor")
	}
	if err := s.repo.AddFavorite(ctx, clientID, vendorID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add favorite")
	}
	return nil
}

// RemoveFavorite is a no-op when the pair does not exist.
func (s *Service) RemoveFavorite(ctx context.Context, principal auth.Principal, vendorID uuid.UUID) error {
	clientID, err := clientOf(principal)
	if err != nil {
		return err
	}
	if _, err := s.repo.RemoveFavorite(ctx, clientID, vendorID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove favorite")
	}
	return nil
}

func (s *Service) ListFavorites(ctx context.Context, principal auth.Principal) ([]models.Vendor, error) {
	clientID, err := clientOf(principal)
	if err != nil {
		return nil, err
	}
	vendors, err := s.repo.ListFavorites(ctx, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list favorites")
	}
	return vendors, nil
}

func clientOf(principal auth.Principal) (uuid.UUID, error) {
	if principal.Role != enums.UserRoleClient || principal.ProfileID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "client access required")
	}
	return principal.ProfileID, nil
}
