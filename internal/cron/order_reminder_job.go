package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/notifications"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	defaultReminderAfter    = 7 * 24 * time.Hour
	reminderUniqueIndexName = "ux_notifications_order_reminder"
)

type overdueOrderFinder interface {
	FindOverdue(ctx context.Context, cutoff time.Time) ([]orders.OverdueOrder, error)
}

type reminderNotifier interface {
	Notify(ctx context.Context, tx *gorm.DB, input notifications.NotifyInput) (*models.Notification, error)
	ExistsForOrder(ctx context.Context, orderID uuid.UUID, typ enums.NotificationType) (bool, error)
}

type reminderMetrics interface {
	IncReminder()
}

// OrderReminderJobParams configure the order reminder job. Location defaults
// to UTC and After to one week.
type OrderReminderJobParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Orders   overdueOrderFinder
	Notifier reminderNotifier
	Metrics  reminderMetrics
	// After is how long an order may stay open before its vendor is reminded.
	After    time.Duration
	Location *time.Location
}

// NewOrderReminderJob builds the job that nudges vendors about orders left
// open past the reminder threshold.
func NewOrderReminderJob(params OrderReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	after := params.After
	if after <= 0 {
		after = defaultReminderAfter
	}
	loc := params.Location
	if loc == nil {
		loc = time.UTC
	}
	return &orderReminderJob{
		logg:     params.Logger,
		db:       params.DB,
		orders:   params.Orders,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		after:    after,
		loc:      loc,
		now:      time.Now,
	}, nil
}

type orderReminderJob struct {
	logg     *logger.Logger
	db       txRunner
	orders   overdueOrderFinder
	notifier reminderNotifier
	metrics  reminderMetrics
	after    time.Duration
	loc      *time.Location
	now      func() time.Time
}

func (j *orderReminderJob) Name() string { return "order_reminder" }

type reminderOutcome int

const (
	reminderSent reminderOutcome = iota
	reminderSkipped
)

func (j *orderReminderJob) Run(ctx context.Context) error {
	now := j.now()
	cutoff := now.UTC().Add(-j.after)
	hour := now.In(j.loc).Hour()

	overdue, err := j.orders.FindOverdue(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find overdue orders: %w", err)
	}

	var (
		errs     error
		reminded int
		skipped  int
		failed   int
	)
	for _, order := range overdue {
		if ctx.Err() != nil {
			errs = multierr.Append(errs, ctx.Err())
			break
		}
		outcome, err := j.remind(ctx, order, hour)
		if err != nil {
			failed++
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.OrderID, err))
			logCtx := j.logg.WithOrderID(ctx, order.OrderID.String())
			logCtx = j.logg.WithField(logCtx, "vendor_id", order.VendorID.String())
			j.logg.Error(logCtx, "order reminder failed", err)
			continue
		}
		switch outcome {
		case reminderSent:
			reminded++
		case reminderSkipped:
			skipped++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"hour":     hour,
		"scanned":  len(overdue),
		"reminded": reminded,
		"skipped":  skipped,
		"failed":   failed,
	})
	j.logg.Info(logCtx, "order reminder scan complete")
	return errs
}

func (j *orderReminderJob) remind(ctx context.Context, order orders.OverdueOrder, hour int) (reminderOutcome, error) {
	if !order.RemindersEnabled || !order.ReminderWindow.Contains(hour) {
		return reminderSkipped, nil
	}
	exists, err := j.notifier.ExistsForOrder(ctx, order.OrderID, enums.NotificationTypeOrderReminder)
	if err != nil {
		return reminderSkipped, err
	}
	if exists {
		return reminderSkipped, nil
	}

	orderID := order.OrderID
	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := j.notifier.Notify(ctx, tx, notifications.NotifyInput{
			UserID:  order.VendorUserID,
			Type:    enums.NotificationTypeOrderReminder,
			Message: reminderMessage(order, j.now()),
			OrderID: &orderID,
		})
		return err
	})
	if db.IsUniqueViolation(err, reminderUniqueIndexName) {
		return reminderSkipped, nil
	}
	if err != nil {
		return reminderSkipped, err
	}
	if j.metrics != nil {
		j.metrics.IncReminder()
	}
	return reminderSent, nil
}

func reminderMessage(order orders.OverdueOrder, now time.Time) string {
	days := int(now.Sub(order.CreatedAt).Hours() / 24)
	return fmt.Sprintf("Order %s is still %s after %d day(s)", order.OrderID.String()[:8], order.Status, days)
}
