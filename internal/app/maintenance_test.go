package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_backoffice/internal/app"
	"hotel_backoffice/internal/domain"
)

func TestRemindUpcomingCheckIns_Dedupes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "2024-01-14", 1)
	f.book(t, "2024-01-14", 2)
	f.book(t, "2024-01-21", 3) // outside a 5-day window

	_, err := f.maintenance.RemindUpcomingCheckIns(ctx, 0)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	n, err := f.maintenance.RemindUpcomingCheckIns(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// rerun on the same day: nothing new
	_, err = f.maintenance.RemindUpcomingCheckIns(ctx, 5)
	require.NoError(t, err)
	count, err := f.notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	list, err := f.notifications.List(ctx, 0, false)
	require.NoError(t, err)
	for _, n := range list {
		assert.Equal(t, domain.NotificationSystem, n.Type)
		assert.Equal(t, domain.PriorityMedium, n.Priority)
		assert.NotEmpty(t, n.BookingID)
	}
}

func TestFlagOverduePending_OnlyPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.book(t, "2024-01-14", 1)
	confirmed := f.book(t, "2024-01-14", 2)
	_, err := f.bookings.Update(ctx, ref(confirmed), app.UpdateBookingInput{Status: statusPtr(domain.BookingConfirmed)})
	require.NoError(t, err)

	// Tuesday after check-in
	f.advance(6 * 24 * time.Hour)
	n, err := f.maintenance.FlagOverduePending(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := f.notifications.List(ctx, 0, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, pending.Reference, list[0].BookingID)
	assert.Equal(t, domain.PriorityHigh, list[0].Priority)

	_, err = f.maintenance.FlagOverduePending(ctx, 7)
	require.NoError(t, err)
	count, err := f.notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPurgeNotifications_KeepsUnread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := f.notifications.Create(ctx, app.CreateNotificationInput{Type: domain.NotificationSystem, Title: "t", Message: "m"})
		require.NoError(t, err)
	}
	_, err := f.notifications.MarkAllRead(ctx)
	require.NoError(t, err)
	_, err = f.notifications.Create(ctx, app.CreateNotificationInput{Type: domain.NotificationSystem, Title: "t", Message: "m"})
	require.NoError(t, err)

	f.advance(31 * 24 * time.Hour)
	n, err := f.maintenance.PurgeNotifications(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	count, err := f.notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPurgeOutbox_KeepsPendingIntents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.book(t, "2024-01-14", 1)
	f.book(t, "2024-01-14", 2)

	// first intent fails for good, second is dispatched
	relay := app.NewRelay(f.store, &flakyPublisher{fail: 1}, app.RelayConfig{MaxAttempts: 1}).
		WithClock(func() time.Time { return f.now })
	_, err := relay.DispatchOnce(ctx)
	require.NoError(t, err)
	pending := f.book(t, "2024-01-14", 3)

	n, err := f.maintenance.PurgeOutbox(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, n, "nothing is old enough yet")

	f.advance(8 * 24 * time.Hour)
	n, err = f.maintenance.PurgeOutbox(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	left := f.store.Outbox()
	require.Len(t, left, 1)
	assert.Equal(t, pending.Reference, left[0].BookingID)
	assert.Nil(t, left[0].DispatchedAt)

	_, err = f.maintenance.PurgeOutbox(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrValidation)
}
