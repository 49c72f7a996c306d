package app

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_backoffice/internal/domain"
)

// MaintenanceService holds the periodic housekeeping jobs run by cmd/maintenance.
// Each job is safe to rerun: reminders and flags are deduped per booking and day.
type MaintenanceService struct {
	bookings      domain.BookingRepository
	outbox        domain.OutboxRepository
	notifications *NotificationService
	workers       int64
	now           func() time.Time
}

func NewMaintenanceService(b domain.BookingRepository, o domain.OutboxRepository, n *NotificationService, workers int) *MaintenanceService {
	if workers < 1 {
		workers = 1
	}
	return &MaintenanceService{bookings: b, outbox: o, notifications: n, workers: int64(workers), now: time.Now}
}

func (s *MaintenanceService) WithClock(now func() time.Time) *MaintenanceService {
	s.now = now
	return s
}

// RemindUpcomingCheckIns records a system notification for every blocking booking
// that checks in within the next days (today included). Returns how many reminders
// were newly recorded or already present.
func (s *MaintenanceService) RemindUpcomingCheckIns(ctx context.Context, days int) (int, error) {
	if days < 1 {
		return 0, domain.Validation("reminder window must be at least 1 day")
	}
	today := domain.DateOnly(s.now())
	list, err := s.bookings.ListBlockingBetween(ctx, today, today.AddDate(0, 0, days))
	if err != nil {
		return 0, err
	}
	return s.each(ctx, list, func(ctx context.Context, b domain.Booking) error {
		_, err := s.notifications.Record(ctx, CreateNotificationInput{
			Type:      domain.NotificationSystem,
			Title:     "Upcoming check-in",
			Message:   fmt.Sprintf("%s checks in to room %d on %s (booking %s, %s).", b.CustomerName, b.RoomNumber, b.CheckIn.Format(domain.DateLayout), b.Reference, b.Status),
			BookingID: b.Reference,
			Priority:  domain.PriorityMedium,
		}, fmt.Sprintf("reminder:%s:%s", b.Reference, b.CheckIn.Format(domain.DateLayout)))
		return err
	})
}

// FlagOverduePending raises a high-priority notice for bookings still pending after
// their check-in date has passed.
func (s *MaintenanceService) FlagOverduePending(ctx context.Context, lookbackDays int) (int, error) {
	if lookbackDays < 1 {
		return 0, domain.Validation("lookback must be at least 1 day")
	}
	today := domain.DateOnly(s.now())
	list, err := s.bookings.ListBlockingBetween(ctx, today.AddDate(0, 0, -lookbackDays), today)
	if err != nil {
		return 0, err
	}
	overdue := list[:0]
	for _, b := range list {
		if b.Status == domain.BookingPending {
			overdue = append(overdue, b)
		}
	}
	return s.each(ctx, overdue, func(ctx context.Context, b domain.Booking) error {
		_, err := s.notifications.Record(ctx, CreateNotificationInput{
			Type:      domain.NotificationSystem,
			Title:     "Booking still pending",
			Message:   fmt.Sprintf("Booking %s for %s checked in on %s but is still pending.", b.Reference, b.CustomerName, b.CheckIn.Format(domain.DateLayout)),
			BookingID: b.Reference,
			Priority:  domain.PriorityHigh,
		}, fmt.Sprintf("overdue:%s:%s", b.Reference, today.Format(domain.DateLayout)))
		return err
	})
}

// PurgeNotifications deletes read notifications older than retentionDays.
func (s *MaintenanceService) PurgeNotifications(ctx context.Context, retentionDays int) (int64, error) {
	return s.notifications.DeleteOlderThan(ctx, retentionDays, true)
}

// PurgeOutbox deletes intents that were dispatched or gave up more than
// retentionDays ago. Pending intents stay until the relay settles them.
func (s *MaintenanceService) PurgeOutbox(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays < 1 {
		return 0, domain.Validation("outbox retention must be at least 1 day")
	}
	return s.outbox.PurgeSettledIntents(ctx, s.now().UTC().AddDate(0, 0, -retentionDays))
}

// each runs fn for every booking on a bounded pool. Individual failures are logged
// and skipped; the count covers successes only.
func (s *MaintenanceService) each(ctx context.Context, list []domain.Booking, fn func(context.Context, domain.Booking) error) (int, error) {
	sem := semaphore.NewWeighted(s.workers)
	var wg sync.WaitGroup
	var ok atomic.Int64

	for _, b := range list {
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return int(ok.Load()), err
		}
		wg.Add(1)
		go func(b domain.Booking) {
			defer wg.Done()
			defer sem.Release(1)
			if err := fn(ctx, b); err != nil {
				log.Warn().Str("booking", b.Reference).Err(err).Msg("maintenance step failed")
				return
			}
			ok.Add(1)
		}(b)
	}
	wg.Wait()
	return int(ok.Load()), nil
}
