package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"hotel_backoffice/internal/domain"
)

type CreateBookingInput struct {
	PackageID     int64  `json:"packageId" validate:"required,gt=0"`
	CustomerName  string `json:"customerName" validate:"required,max=200"`
	CustomerEmail string `json:"customerEmail" validate:"required,email,max=254"`
	CustomerPhone string `json:"customerPhone" validate:"required,phone"`
	CheckInDate   string `json:"checkInDate" validate:"required"`
	RoomNumber    int    `json:"roomNumber" validate:"required,min=1,max=5"`
}

type UpdateBookingInput struct {
	Status     *domain.BookingStatus `json:"status"`
	AdminNotes *string               `json:"adminNotes" validate:"omitempty,max=2000"`
}

// BookingService owns booking validation, the status state machine and the
// notification intents that follow every change.
type BookingService struct {
	repo     domain.BookingRepository
	catalog  *CatalogService
	validate *validator.Validate
	now      func() time.Time
	newRef   func(time.Time) string
}

func NewBookingService(r domain.BookingRepository, c *CatalogService, v *validator.Validate) *BookingService {
	return &BookingService{repo: r, catalog: c, validate: v, now: time.Now, newRef: newBookingReference}
}

// WithClock is used by tests and maintenance jobs that evaluate "today" explicitly.
func (s *BookingService) WithClock(now func() time.Time) *BookingService {
	s.now = now
	return s
}

func (s *BookingService) Create(ctx context.Context, in CreateBookingInput) (domain.Booking, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.Booking{}, validationError(err)
	}
	name := strings.TrimSpace(in.CustomerName)
	if len([]rune(name)) < 2 {
		return domain.Booking{}, domain.Validation("customerName must be at least 2 characters")
	}
	checkIn, err := domain.ParseDate(in.CheckInDate)
	if err != nil {
		return domain.Booking{}, err
	}
	if checkIn.Weekday() != domain.CheckInWeekday {
		return domain.Booking{}, domain.Validation("checkInDate must be a %s", domain.CheckInWeekday)
	}
	now := s.now().UTC()
	if checkIn.Before(domain.DateOnly(now)) {
		return domain.Booking{}, domain.Validation("checkInDate cannot be in the past")
	}

	pkg, err := s.catalog.GetActive(ctx, in.PackageID)
	if err != nil {
		return domain.Booking{}, err
	}

	stay := domain.NewStay(checkIn)
	b := domain.Booking{
		Reference:     s.newRef(now),
		PackageID:     pkg.ID,
		RoomNumber:    in.RoomNumber,
		CustomerName:  name,
		CustomerEmail: strings.ToLower(strings.TrimSpace(in.CustomerEmail)),
		CustomerPhone: NormalizePhone(in.CustomerPhone),
		CheckIn:       stay.CheckIn,
		CheckOut:      stay.CheckOut,
		TotalPrice:    pkg.Price,
		Status:        domain.BookingPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	intent := newIntent(now, domain.NotificationBookingCreated, domain.PriorityHigh, b.Reference,
		"New booking received",
		fmt.Sprintf("Booking %s for %s: %s, room %d, %s to %s.",
			b.Reference, b.CustomerName, pkg.Title, b.RoomNumber,
			b.CheckIn.Format(domain.DateLayout), b.CheckOut.Format(domain.DateLayout)))

	return s.repo.InsertBooking(ctx, b, intent)
}

func (s *BookingService) Get(ctx context.Context, ref domain.BookingRef) (domain.Booking, error) {
	return s.repo.GetBooking(ctx, ref)
}

func (s *BookingService) Update(ctx context.Context, ref domain.BookingRef, in UpdateBookingInput) (domain.Booking, error) {
	if err := s.validate.Struct(in); err != nil {
		return domain.Booking{}, validationError(err)
	}
	if in.Status == nil && in.AdminNotes == nil {
		return domain.Booking{}, domain.Validation("status or adminNotes is required")
	}
	if in.Status != nil && !in.Status.Valid() {
		return domain.Booking{}, domain.Validation("status must be one of pending, confirmed, cancelled, completed")
	}

	cur, err := s.repo.GetBooking(ctx, ref)
	if err != nil {
		return domain.Booking{}, err
	}
	next := cur
	now := s.now().UTC()
	next.UpdatedAt = now
	if in.AdminNotes != nil {
		next.AdminNotes = strings.TrimSpace(*in.AdminNotes)
	}

	var intent *domain.OutboxIntent
	if in.Status != nil && *in.Status != cur.Status {
		if !cur.Status.CanTransition(*in.Status) {
			return domain.Booking{}, domain.Conflict(fmt.Sprintf("cannot change booking status from %s to %s", cur.Status, *in.Status))
		}
		next.Status = *in.Status
		i := statusIntent(now, cur, next.Status)
		intent = &i
	}
	return s.repo.UpdateBooking(ctx, next, cur.Status, intent)
}

// Delete removes a booking for good. Past bookings must be cancelled first.
func (s *BookingService) Delete(ctx context.Context, ref domain.BookingRef) error {
	cur, err := s.repo.GetBooking(ctx, ref)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	if cur.CheckIn.Before(domain.DateOnly(now)) && cur.Status != domain.BookingCancelled {
		return domain.Conflict("cannot delete a past booking unless it is cancelled")
	}
	intent := newIntent(now, domain.NotificationBookingCancelled, domain.PriorityMedium, cur.Reference,
		"Booking deleted",
		fmt.Sprintf("Booking %s for %s (room %d, %s to %s, status %s) was deleted.",
			cur.Reference, cur.CustomerName, cur.RoomNumber,
			cur.CheckIn.Format(domain.DateLayout), cur.CheckOut.Format(domain.DateLayout), cur.Status))
	return s.repo.DeleteBooking(ctx, cur.ID, intent)
}

// List returns every booking newest first, or, for a package, the upcoming
// pending/confirmed bookings ordered by check-in.
func (s *BookingService) List(ctx context.Context, packageID *int64) ([]domain.Booking, error) {
	f := domain.BookingFilter{PackageID: packageID, Today: domain.DateOnly(s.now())}
	out, err := s.repo.ListBookings(ctx, f)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Booking{}
	}
	return out, nil
}

func statusIntent(now time.Time, b domain.Booking, next domain.BookingStatus) domain.OutboxIntent {
	if next == domain.BookingCancelled {
		return newIntent(now, domain.NotificationBookingCancelled, domain.PriorityHigh, b.Reference,
			"Booking cancelled",
			fmt.Sprintf("Booking %s for %s (room %d, %s to %s) was cancelled.",
				b.Reference, b.CustomerName, b.RoomNumber,
				b.CheckIn.Format(domain.DateLayout), b.CheckOut.Format(domain.DateLayout)))
	}
	return newIntent(now, domain.NotificationBookingUpdated, domain.PriorityMedium, b.Reference,
		"Booking updated",
		fmt.Sprintf("Booking %s changed from %s to %s.", b.Reference, b.Status, next))
}

func newIntent(now time.Time, t domain.NotificationType, p domain.Priority, ref, title, msg string) domain.OutboxIntent {
	return domain.OutboxIntent{
		ID:        uuid.NewString(),
		Type:      t,
		Title:     title,
		Message:   msg,
		BookingID: ref,
		Priority:  p,
		CreatedAt: now,
	}
}

// newBookingReference yields e.g. BK-20240114-1A2B3C4D.
func newBookingReference(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return "BK-" + now.UTC().Format("20060102") + "-" + suffix
}
