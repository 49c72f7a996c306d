package app_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_backoffice/internal/app"
	"hotel_backoffice/internal/domain"
)

func TestNotificationCreate_DefaultsAndValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n, err := f.notifications.Create(ctx, app.CreateNotificationInput{
		Type: domain.NotificationSystem, Title: " Heads up ", Message: "Boiler service on Monday",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityMedium, n.Priority)
	assert.Equal(t, "Heads up", n.Title)
	assert.False(t, n.IsRead)
	assert.Nil(t, n.ReadAt)

	bad := map[string]app.CreateNotificationInput{
		"unknown type":     {Type: "party", Title: "t", Message: "m"},
		"unknown priority": {Type: domain.NotificationSystem, Title: "t", Message: "m", Priority: "urgent"},
		"blank title":      {Type: domain.NotificationSystem, Title: "   ", Message: "m"},
		"long title":       {Type: domain.NotificationSystem, Title: strings.Repeat("x", 256), Message: "m"},
		"missing message":  {Type: domain.NotificationSystem, Title: "t"},
	}
	for name, in := range bad {
		t.Run(name, func(t *testing.T) {
			_, err := f.notifications.Create(ctx, in)
			assert.Equal(t, domain.KindValidation, domain.KindOf(err), "got %v", err)
		})
	}
}

func TestNotificationDeliver_DedupesOnIntentID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var created []domain.NotificationType
	f.notifications.OnCreated = func(t domain.NotificationType) { created = append(created, t) }

	intent := domain.OutboxIntent{
		ID: "6f1c0c1e-2d7a-4c1b-9a53-1b1c6f0e9e01", Type: domain.NotificationBookingCreated,
		Title: "New booking received", Message: "Booking BK-1", BookingID: "BK-1", Priority: domain.PriorityHigh,
	}
	first, err := f.notifications.Deliver(ctx, intent)
	require.NoError(t, err)
	again, err := f.notifications.Deliver(ctx, intent)
	require.NoError(t, err)

	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, []domain.NotificationType{domain.NotificationBookingCreated}, created)
	count, err := f.notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotificationMarkRead_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	n, err := f.notifications.Create(ctx, app.CreateNotificationInput{Type: domain.NotificationSystem, Title: "t", Message: "m"})
	require.NoError(t, err)

	first, err := f.notifications.MarkRead(ctx, n.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)
	readAt := *first.ReadAt

	f.advance(time.Hour)
	second, err := f.notifications.MarkRead(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, second.IsRead)
	assert.Equal(t, readAt, *second.ReadAt, "second markRead keeps the original timestamp")

	_, err = f.notifications.MarkRead(ctx, 0)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	_, err = f.notifications.MarkRead(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNotificationList_OrderLimitAndUnread(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	var ids []int64
	for i := 0; i < 3; i++ {
		n, err := f.notifications.Create(ctx, app.CreateNotificationInput{Type: domain.NotificationSystem, Title: "t", Message: "m"})
		require.NoError(t, err)
		ids = append(ids, n.ID)
		f.advance(time.Minute)
	}
	_, err := f.notifications.MarkRead(ctx, ids[2])
	require.NoError(t, err)

	list, err := f.notifications.List(ctx, 0, false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID, "newest first")

	list, err = f.notifications.List(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.notifications.List(ctx, 50, true)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	n, err := f.notifications.MarkAllRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	count, err := f.notifications.UnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestNotificationDelete_Retention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mk := func() domain.Notification {
		n, err := f.notifications.Create(ctx, app.CreateNotificationInput{Type: domain.NotificationSystem, Title: "t", Message: "m"})
		require.NoError(t, err)
		return n
	}
	oldRead := mk()
	oldUnread := mk()
	_, err := f.notifications.MarkRead(ctx, oldRead.ID)
	require.NoError(t, err)

	f.advance(40 * 24 * time.Hour)
	fresh := mk()
	_, err = f.notifications.MarkRead(ctx, fresh.ID)
	require.NoError(t, err)

	_, err = f.notifications.DeleteOlderThan(ctx, 0, true)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))

	n, err := f.notifications.DeleteOlderThan(ctx, 30, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the old read one goes")

	n, err = f.notifications.DeleteRead(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "fresh read notification")

	n, err = f.notifications.DeleteOlderThan(ctx, 30, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	assert.ErrorIs(t, f.notifications.Delete(ctx, oldUnread.ID), domain.ErrNotFound)
}
