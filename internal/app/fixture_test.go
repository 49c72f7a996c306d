package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hotel_backoffice/internal/app"
	"hotel_backoffice/internal/domain"
	"hotel_backoffice/internal/storage/memory"
)

// fixture wires every service over one memory store and a movable clock that
// starts on Wednesday 2024-01-10.
type fixture struct {
	now           time.Time
	store         *memory.Store
	catalog       *app.CatalogService
	bookings      *app.BookingService
	notifications *app.NotificationService
	admins        *app.AdminDirectory
	maintenance   *app.MaintenanceService
	pkg           domain.Package
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{now: time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	v := app.NewValidator()
	f.store = memory.New().WithClock(clock)
	f.catalog = app.NewCatalogService(f.store, nil, time.Minute, v)
	f.bookings = app.NewBookingService(f.store, f.catalog, v).WithClock(clock)
	f.notifications = app.NewNotificationService(f.store, v).WithClock(clock)
	f.admins = app.NewAdminDirectory(f.store, v, app.Bootstrap{Email: "root@hotel.test", Password: "bootstrap-pass"}, bcrypt.MinCost)
	f.maintenance = app.NewMaintenanceService(f.store, f.store, f.notifications, 3).WithClock(clock)

	var err error
	f.pkg, err = f.catalog.Create(context.Background(), app.PackageInput{
		Title: "Winter week", Features: []string{"Breakfast"}, Price: pfloat(899),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) book(t *testing.T, date string, room int) domain.Booking {
	t.Helper()
	b, err := f.bookings.Create(context.Background(), bookingInput(f.pkg.ID, date, room))
	require.NoError(t, err)
	return b
}

func bookingInput(pkg int64, date string, room int) app.CreateBookingInput {
	return app.CreateBookingInput{
		PackageID:     pkg,
		CustomerName:  "Grace Hopper",
		CustomerEmail: "Grace@Example.com",
		CustomerPhone: "0612 345 678",
		CheckInDate:   date,
		RoomNumber:    room,
	}
}

func ref(b domain.Booking) domain.BookingRef { return domain.BookingRef{Reference: b.Reference} }

func statusPtr(s domain.BookingStatus) *domain.BookingStatus { return &s }

func strPtr(s string) *string { return &s }
