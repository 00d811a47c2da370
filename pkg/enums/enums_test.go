package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatusTransitions(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:   {OrderStatusPaid, OrderStatusValidated, OrderStatusCancelled},
		OrderStatusPaid:      {OrderStatusValidated, OrderStatusCancelled},
		OrderStatusValidated: {OrderStatusPreparing, OrderStatusCancelled},
		OrderStatusPreparing: {OrderStatusShipped, OrderStatusCancelled},
		OrderStatusShipped:   {OrderStatusDelivered, OrderStatusCancelled},
		OrderStatusDelivered: nil,
		OrderStatusCancelled: nil,
	}

	for _, from := range validOrderStatuses {
		for _, to := range validOrderStatuses {
			want := false
			for _, candidate := range allowed[from] {
				if candidate == to {
					want = true
				}
			}
			assert.Equalf(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.True(t, OrderStatusDelivered.IsTerminal())
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
}

func TestParseOrderStatus(t *testing.T) {
	status, err := ParseOrderStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, OrderStatusShipped, status)

	_, err = ParseOrderStatus("lost")
	require.Error(t, err)
}

func TestEveryNotificationTypeHasDisplay(t *testing.T) {
	for _, typ := range NotificationTypes() {
		display, ok := notificationDisplays[typ]
		require.Truef(t, ok, "missing display for %s", typ)
		assert.NotEmpty(t, display.Title)
		assert.NotEmpty(t, display.Severity)
	}
	assert.Len(t, notificationDisplays, len(validNotificationTypes))
	assert.Equal(t, notificationDisplays[NotificationTypeInfo], NotificationType("bogus").Display())
}

func TestEveryStockStatusHasDisplay(t *testing.T) {
	for _, status := range StockStatuses() {
		display, ok := stockDisplays[status]
		require.Truef(t, ok, "missing display for %s", status)
		assert.NotEmpty(t, display.Label)
		assert.NotEmpty(t, display.Color)
	}
	assert.Len(t, stockDisplays, len(validStockStatuses))
}

func TestReminderWindowBounds(t *testing.T) {
	cases := []struct {
		window ReminderWindow
		hour   int
		want   bool
	}{
		{ReminderWindowMorning, 5, false},
		{ReminderWindowMorning, 6, true},
		{ReminderWindowMorning, 7, true},
		{ReminderWindowMorning, 8, false},
		{ReminderWindowEvening, 18, true},
		{ReminderWindowEvening, 19, true},
		{ReminderWindowEvening, 20, false},
		{ReminderWindowNight, 21, false},
		{ReminderWindowNight, 22, true},
		{ReminderWindowNight, 23, false},
		{ReminderWindow("noon"), 12, false},
	}
	for _, tc := range cases {
		assert.Equalf(t, tc.want, tc.window.Contains(tc.hour), "%s at %d", tc.window, tc.hour)
	}
}

func TestDeliveryStatusNext(t *testing.T) {
	next, ok := DeliveryStatusPreparing.Next()
	require.True(t, ok)
	assert.Equal(t, DeliveryStatusInTransit, next)

	next, ok = DeliveryStatusInTransit.Next()
	require.True(t, ok)
	assert.Equal(t, DeliveryStatusDelivered, next)

	_, ok = DeliveryStatusDelivered.Next()
	assert.False(t, ok)
}

func TestParseHelpersRejectUnknown(t *testing.T) {
	_, err := ParseUserRole("root")
	assert.Error(t, err)
	_, err = ParsePaymentMode("crypto")
	assert.Error(t, err)
	_, err = ParseNotificationType("push")
	assert.Error(t, err)
	_, err = ParseStockAdjustMode("multiply")
	assert.Error(t, err)
	_, err = ParseReminderWindow("noon")
	assert.Error(t, err)

	mode, err := ParseStockAdjustMode("subtract")
	require.NoError(t, err)
	assert.Equal(t, StockAdjustModeSubtract, mode)
}
