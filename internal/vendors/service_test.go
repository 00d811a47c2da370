package vendors

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	notify, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)
	svc, err := NewService(NewRepository(conn), client, notify, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	require.NoError(t, err)
	return svc, conn
}

func seedPendingVendor(t *testing.T, conn *gorm.DB) models.Vendor {
	t.Helper()
	vendor := dbtest.SeedVendor(t, conn)
	require.NoError(t, conn.Model(&models.Vendor{}).Where("id = ?", vendor.ID).
		Update("approval_status", enums.VendorApprovalStatusPending).Error)
	vendor.ApprovalStatus = enums.VendorApprovalStatusPending
	return vendor
}

func notificationsFor(t *testing.T, conn *gorm.DB, userID uuid.UUID, typ enums.NotificationType) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, conn.Where("user_id = ? AND type = ?", userID, typ).Find(&rows).Error)
	return rows
}

func adminPrincipal(user models.User) auth.Principal {
	return auth.Principal{UserID: user.ID, Role: enums.UserRoleAdmin}
}

func vendorPrincipal(vendor models.Vendor) auth.Principal {
	return auth.Principal{UserID: vendor.UserID, Role: enums.UserRoleVendor, ProfileID: vendor.ID}
}

func clientPrincipal(client models.Client) auth.Principal {
	return auth.Principal{UserID: client.UserID, Role: enums.UserRoleClient, ProfileID: client.ID}
}

func TestRequestApprovalNotifiesEveryAdmin(t *testing.T) {
	svc, conn := newTestService(t)
	first := dbtest.SeedUser(t, conn, enums.UserRoleAdmin)
	second := dbtest.SeedUser(t, conn, enums.UserRoleAdmin)
	vendor := seedPendingVendor(t, conn)

	got, err := svc.RequestApproval(context.Background(), vendorPrincipal(vendor), vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.VendorApprovalStatusPending, got.ApprovalStatus)

	assert.Len(t, notificationsFor(t, conn, first.ID, enums.NotificationTypeVendorRequest), 1)
	assert.Len(t, notificationsFor(t, conn, second.ID, enums.NotificationTypeVendorRequest), 1)
}

func TestRequestApprovalAfterRejectionReopensReview(t *testing.T) {
	svc, conn := newTestService(t)
	dbtest.SeedUser(t, conn, enums.UserRoleAdmin)
	vendor := dbtest.SeedVendor(t, conn)
	require.NoError(t, conn.Model(&models.Vendor{}).Where("id = ?", vendor.ID).
		Update("approval_status", enums.VendorApprovalStatusRejected).Error)

	got, err := svc.RequestApproval(context.Background(), vendorPrincipal(vendor), vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.VendorApprovalStatusPending, got.ApprovalStatus)
}

func TestRequestApprovalRejectsApprovedAndStrangers(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := dbtest.SeedVendor(t, conn)
	other := dbtest.SeedVendor(t, conn)

	_, err := svc.RequestApproval(context.Background(), vendorPrincipal(vendor), vendor.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	_, err = svc.RequestApproval(context.Background(), vendorPrincipal(other), vendor.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestApproveAndRejectNotifyVendor(t *testing.T) {
	svc, conn := newTestService(t)
	admin := dbtest.SeedUser(t, conn, enums.UserRoleAdmin)
	approved := seedPendingVendor(t, conn)
	rejected := seedPendingVendor(t, conn)
	ctx := context.Background()

	got, err := svc.Approve(ctx, adminPrincipal(admin), approved.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.VendorApprovalStatusApproved, got.ApprovalStatus)
	assert.Len(t, notificationsFor(t, conn, approved.UserID, enums.NotificationTypeVendorApproval), 1)

	got, err = svc.Reject(ctx, adminPrincipal(admin), rejected.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.VendorApprovalStatusRejected, got.ApprovalStatus)
	assert.Len(t, notificationsFor(t, conn, rejected.UserID, enums.NotificationTypeVendorRejection), 1)

	_, err = svc.Approve(ctx, adminPrincipal(admin), approved.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))
	assert.Equal(t, enums.VendorApprovalStatusApproved, enums.VendorApprovalStatus(pkgerrors.As(err).Details().(pkgerrors.Transition).From))
}

func TestReviewRequiresAdmin(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := seedPendingVendor(t, conn)

	_, err := svc.Approve(context.Background(), vendorPrincipal(vendor), vendor.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	admin := dbtest.SeedUser(t, conn, enums.UserRoleAdmin)
	_, err = svc.Reject(context.Background(), adminPrincipal(admin), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateReminderPreferences(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := dbtest.SeedVendor(t, conn)
	principal := vendorPrincipal(vendor)

	prefs, err := svc.UpdateReminderPreferences(context.Background(), principal, ReminderPreferences{
		Enabled: false,
		Window:  enums.ReminderWindowNight,
	})
	require.NoError(t, err)
	assert.False(t, prefs.Enabled)

	stored, err := svc.ReminderPreferences(context.Background(), principal)
	require.NoError(t, err)
	assert.False(t, stored.Enabled)
	assert.Equal(t, enums.ReminderWindowNight, stored.Window)

	_, err = svc.UpdateReminderPreferences(context.Background(), principal, ReminderPreferences{Enabled: true, Window: "noon"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestFavoritesRoundTrip(t *testing.T) {
	svc, conn := newTestService(t)
	client := dbtest.SeedClient(t, conn)
	vendor := dbtest.SeedVendor(t, conn)
	principal := clientPrincipal(client)
	ctx := context.Background()

	require.NoError(t, svc.AddFavorite(ctx, principal, vendor.ID))
	require.NoError(t, svc.AddFavorite(ctx, principal, vendor.ID))

	favorites, err := svc.ListFavorites(ctx, principal)
	require.NoError(t, err)
	require.Len(t, favorites, 1)
	assert.Equal(t, vendor.ID, favorites[0].ID)

	ids, err := svc.repo.FavoritingClientUserIDs(ctx, vendor.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{client.UserID}, ids)

	require.NoError(t, svc.RemoveFavorite(ctx, principal, vendor.ID))
	require.NoError(t, svc.RemoveFavorite(ctx, principal, vendor.ID))
	favorites, err = svc.ListFavorites(ctx, principal)
	require.NoError(t, err)
	assert.Empty(t, favorites)
}

func TestFavoritesRequireClient(t *testing.T) {
	svc, conn := newTestService(t)
	vendor := dbtest.SeedVendor(t, conn)

	err := svc.AddFavorite(context.Background(), vendorPrincipal(vendor), vendor.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	client := dbtest.SeedClient(t, conn)
	err = svc.AddFavorite(context.Background(), clientPrincipal(client), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
