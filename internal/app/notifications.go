package app

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"hotel_backoffice/internal/domain"
)

const (
	DefaultNotificationLimit = 50
	MaxNotificationLimit     = 200
)

type CreateNotificationInput struct {
	Type      domain.NotificationType `json:"type" validate:"required"`
	Title     string                  `json:"title" validate:"required,max=255"`
	Message   string                  `json:"message" validate:"required,max=5000"`
	BookingID string                  `json:"bookingId" validate:"max=64"`
	Priority  domain.Priority         `json:"priority"`
}

type NotificationService struct {
	repo     domain.NotificationRepository
	validate *validator.Validate
	now      func() time.Time
	// OnCreated, when set, is called once per newly recorded notification.
	OnCreated func(domain.NotificationType)
}

func NewNotificationService(r domain.NotificationRepository, v *validator.Validate) *NotificationService {
	return &NotificationService{repo: r, validate: v, now: time.Now}
}

func (s *NotificationService) WithClock(now func() time.Time) *NotificationService {
	s.now = now
	return s
}

func (s *NotificationService) Create(ctx context.Context, in CreateNotificationInput) (domain.Notification, error) {
	return s.create(ctx, in, "")
}

func (s *NotificationService) create(ctx context.Context, in CreateNotificationInput, dedupeKey string) (domain.Notification, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Message = strings.TrimSpace(in.Message)
	if err := s.validate.Struct(in); err != nil {
		return domain.Notification{}, validationError(err)
	}
	if !in.Type.Valid() {
		return domain.Notification{}, domain.Validation("type must be one of booking_created, booking_updated, booking_cancelled, system")
	}
	if in.Priority == "" {
		in.Priority = domain.PriorityMedium
	}
	if !in.Priority.Valid() {
		return domain.Notification{}, domain.Validation("priority must be one of low, medium, high")
	}
	n, created, err := s.repo.CreateNotification(ctx, domain.Notification{
		Type:      in.Type,
		Title:     in.Title,
		Message:   in.Message,
		BookingID: strings.TrimSpace(in.BookingID),
		Priority:  in.Priority,
		DedupeKey: dedupeKey,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return domain.Notification{}, err
	}
	if created && s.OnCreated != nil {
		s.OnCreated(n.Type)
	}
	return n, nil
}

// Deliver records an outbox intent as a notification. The intent id is the dedupe
// key, so a redelivered message yields the notification recorded the first time.
func (s *NotificationService) Deliver(ctx context.Context, intent domain.OutboxIntent) (domain.Notification, error) {
	return s.create(ctx, CreateNotificationInput{
		Type:      intent.Type,
		Title:     intent.Title,
		Message:   intent.Message,
		BookingID: intent.BookingID,
		Priority:  intent.Priority,
	}, "outbox:"+intent.ID)
}

// Record stores a notification under an explicit dedupe key. Maintenance jobs use it
// so rerunning a job does not duplicate reminders.
func (s *NotificationService) Record(ctx context.Context, in CreateNotificationInput, dedupeKey string) (domain.Notification, error) {
	return s.create(ctx, in, dedupeKey)
}

// List clamps limit to (0, MaxNotificationLimit]; zero or negative means the default.
func (s *NotificationService) List(ctx context.Context, limit int, unreadOnly bool) ([]domain.Notification, error) {
	switch {
	case limit <= 0:
		limit = DefaultNotificationLimit
	case limit > MaxNotificationLimit:
		limit = MaxNotificationLimit
	}
	out, err := s.repo.ListNotifications(ctx, domain.NotificationQuery{Limit: limit, UnreadOnly: unreadOnly})
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Notification{}
	}
	return out, nil
}

// MarkRead is idempotent: an already-read notification keeps its original readAt.
func (s *NotificationService) MarkRead(ctx context.Context, id int64) (domain.Notification, error) {
	if id <= 0 {
		return domain.Notification{}, domain.Validation("notification id must be positive")
	}
	return s.repo.MarkNotificationRead(ctx, id, s.now().UTC())
}

func (s *NotificationService) MarkAllRead(ctx context.Context) (int64, error) {
	return s.repo.MarkAllNotificationsRead(ctx, s.now().UTC())
}

func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	return s.repo.CountUnreadNotifications(ctx)
}

func (s *NotificationService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.Validation("notification id must be positive")
	}
	return s.repo.DeleteNotification(ctx, id)
}

// DeleteOlderThan removes notifications created more than days ago. With onlyRead
// unread ones are kept regardless of age.
func (s *NotificationService) DeleteOlderThan(ctx context.Context, days int, onlyRead bool) (int64, error) {
	if days < 1 {
		return 0, domain.Validation("olderThanDays must be at least 1")
	}
	cutoff := s.now().UTC().AddDate(0, 0, -days)
	return s.repo.DeleteNotificationsBefore(ctx, cutoff, onlyRead)
}

// DeleteRead removes every read notification.
func (s *NotificationService) DeleteRead(ctx context.Context) (int64, error) {
	return s.repo.DeleteNotificationsBefore(ctx, s.now().UTC().Add(time.Second), true)
}
