package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

func TestNotificationCleanupJobLoopsUntilShortBatch(t *testing.T) {
	now := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	repo := &fakeNotificationRepo{batches: []int64{3, 3, 1}}
	job := newNotificationCleanupJob(t, repo, 3)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	expectedCutoff := now.Add(-notificationRetentionDays * 24 * time.Hour)
	assert.True(t, repo.lastCutoff.Equal(expectedCutoff), "cutoff %s", repo.lastCutoff)
	assert.Equal(t, 3, repo.called)
	assert.Equal(t, 3, repo.lastLimit)
}

func TestNotificationCleanupJobStopsOnCancelledContext(t *testing.T) {
	repo := &fakeNotificationRepo{batches: []int64{3}}
	job := newNotificationCleanupJob(t, repo, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, job.Run(ctx), context.Canceled)
	assert.Zero(t, repo.called)
}

func TestNotificationCleanupJobPropagatesErrors(t *testing.T) {
	repo := &fakeNotificationRepo{err: errors.New("boom")}
	job := newNotificationCleanupJob(t, repo, 0)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNotificationCleanupJobKeepsUnreadRows(t *testing.T) {
	client, conn := dbtest.Client(t)
	user := dbtest.SeedUser(t, conn, enums.UserRoleClient)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	seed := func(read bool, age time.Duration) {
		row := models.Notification{
			ID:        uuid.New(),
			UserID:    user.ID,
			Type:      enums.NotificationTypeInfo,
			Message:   "hello",
			Read:      read,
			CreatedAt: now.Add(-age),
		}
		require.NoError(t, conn.Create(&row).Error)
	}
	seed(true, 10*24*time.Hour)
	seed(true, 9*24*time.Hour)
	seed(true, 8*24*time.Hour)
	seed(false, 10*24*time.Hour)
	seed(true, 24*time.Hour)

	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:         client,
		Repository: notifications.NewRepository(conn),
		Retention:  7,
		BatchSize:  2,
	})
	require.NoError(t, err)
	job := jobIface.(*notificationCleanupJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))

	var remaining []models.Notification
	require.NoError(t, conn.Order("created_at").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	assert.False(t, remaining[0].Read)
	assert.True(t, remaining[1].Read)
}

func newNotificationCleanupJob(t *testing.T, repo *fakeNotificationRepo, batch int) *notificationCleanupJob {
	t.Helper()
	jobIface, err := NewNotificationCleanupJob(NotificationCleanupJobParams{
		Logger:     logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:         notificationFakeTxRunner{},
		Repository: repo,
		BatchSize:  batch,
	})
	require.NoError(t, err)
	job, ok := jobIface.(*notificationCleanupJob)
	require.True(t, ok, "unexpected job type %T", jobIface)
	return job
}

type fakeNotificationRepo struct {
	batches    []int64
	lastCutoff time.Time
	lastLimit  int
	err        error
	called     int
}

func (f *fakeNotificationRepo) DeleteReadOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	f.lastLimit = limit
	if f.err != nil {
		return 0, f.err
	}
	if len(f.batches) == 0 {
		return 0, nil
	}
	n := f.batches[0]
	f.batches = f.batches[1:]
	return n, nil
}

type notificationFakeTxRunner struct{}

func (notificationFakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
