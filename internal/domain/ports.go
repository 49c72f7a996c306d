package domain

import (
	"context"
	"time"
)

type PackageRepository interface {
	CreatePackage(ctx context.Context, p Package) (Package, error)
	UpdatePackage(ctx context.Context, p Package) (Package, error)
	DeactivatePackage(ctx context.Context, id int64, at time.Time) error
	// GetPackage returns the package regardless of IsActive.
	GetPackage(ctx context.Context, id int64) (Package, error)
	ListActivePackages(ctx context.Context) ([]Package, error)
}

type BookingRepository interface {
	// InsertBooking checks for a blocking overlap on the booking's room and inserts the
	// booking plus intent as one atomic unit. Overlap yields ErrConflict.
	InsertBooking(ctx context.Context, b Booking, intent OutboxIntent) (Booking, error)
	GetBooking(ctx context.Context, ref BookingRef) (Booking, error)
	// UpdateBooking applies b only if the stored status still equals expected.
	// intent is optional and is stored in the same unit of work.
	UpdateBooking(ctx context.Context, b Booking, expected BookingStatus, intent *OutboxIntent) (Booking, error)
	DeleteBooking(ctx context.Context, id int64, intent OutboxIntent) error
	ListBookings(ctx context.Context, f BookingFilter) ([]Booking, error)
	// BookedRooms returns rooms holding a blocking booking that overlaps stay.
	BookedRooms(ctx context.Context, stay Stay) ([]int, error)
	HasOverlap(ctx context.Context, room int, stay Stay, excludeID int64) (bool, error)
	// ListBlockingBetween returns blocking bookings whose check-in falls in [from, to).
	ListBlockingBetween(ctx context.Context, from, to time.Time) ([]Booking, error)
}

type AdminRepository interface {
	// CreateAdmin yields ErrConflict when the email is taken.
	CreateAdmin(ctx context.Context, a Admin) (Admin, error)
	GetAdmin(ctx context.Context, id int64) (Admin, error)
	// GetActiveAdminByEmail only returns active accounts.
	GetActiveAdminByEmail(ctx context.Context, email string) (Admin, error)
	ListActiveAdmins(ctx context.Context) ([]Admin, error)
	// UpdateAdmin writes next only if the stored row still matches current
	// (email, role, isActive); otherwise ErrConflict. When the change drops an
	// active super_admin, the quorum check and the write are one atomic step and
	// a lone remaining super_admin yields ErrLastSuperAdmin.
	UpdateAdmin(ctx context.Context, current, next Admin) (Admin, error)
	CountActiveSuperAdmins(ctx context.Context) (int, error)
}

type NotificationRepository interface {
	// CreateNotification returns the existing row and created=false when DedupeKey
	// is already stored.
	CreateNotification(ctx context.Context, n Notification) (stored Notification, created bool, err error)
	ListNotifications(ctx context.Context, q NotificationQuery) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id int64, at time.Time) (Notification, error)
	MarkAllNotificationsRead(ctx context.Context, at time.Time) (int64, error)
	CountUnreadNotifications(ctx context.Context) (int, error)
	DeleteNotification(ctx context.Context, id int64) error
	DeleteNotificationsBefore(ctx context.Context, cutoff time.Time, onlyRead bool) (int64, error)
}

type OutboxRepository interface {
	PendingIntents(ctx context.Context, limit int) ([]OutboxIntent, error)
	MarkIntentDispatched(ctx context.Context, id string, at time.Time) error
	// MarkIntentFailed records a failed attempt; dead stops further retries.
	MarkIntentFailed(ctx context.Context, id string, reason string, dead bool, at time.Time) error
	// PurgeSettledIntents deletes dispatched or failed intents settled before cutoff.
	// Pending intents are never removed.
	PurgeSettledIntents(ctx context.Context, cutoff time.Time) (int64, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
