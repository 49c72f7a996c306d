package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hotel_backoffice/internal/domain"
)

func scanNotification(s scanner) (domain.Notification, error) {
	var (
		n      domain.Notification
		ref    sql.NullString
		dedupe sql.NullString
		readAt sql.NullTime
	)
	if err := s.Scan(&n.ID, &n.Type, &n.Title, &n.Message, &ref, &n.IsRead, &n.Priority, &dedupe, &n.CreatedAt, &readAt); err != nil {
		return domain.Notification{}, err
	}
	n.BookingID = ref.String
	n.DedupeKey = dedupe.String
	n.CreatedAt = n.CreatedAt.UTC()
	n.ReadAt = nullTime(readAt)
	return n, nil
}

// CreateNotification relies on the unique dedupe_key index: a duplicate returns the
// row that won.
func (r *Repo) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, bool, error) {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now().UTC()
	}
	res, err := r.db.ExecContext(ctx, insertNotificationSQL,
		n.Type, n.Title, n.Message, valStr(n.BookingID), n.Priority, valStr(n.DedupeKey), n.CreatedAt.UTC())
	if err != nil {
		if isDuplicate(err) && n.DedupeKey != "" {
			existing, gerr := scanNotification(r.db.QueryRowContext(ctx, getNotificationByDedupeSQL, n.DedupeKey))
			if gerr != nil {
				return domain.Notification{}, false, notFound(gerr, "notification")
			}
			return existing, false, nil
		}
		return domain.Notification{}, false, fmt.Errorf("insert notification: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Notification{}, false, fmt.Errorf("insert notification id: %w", err)
	}
	n.ID = id
	n.IsRead = false
	return n, true, nil
}

func (r *Repo) ListNotifications(ctx context.Context, q domain.NotificationQuery) ([]domain.Notification, error) {
	query := listNotificationsSQL
	if q.UnreadOnly {
		query = listUnreadNotificationsSQL
	}
	rows, err := r.db.QueryContext(ctx, query, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()
	out := []domain.Notification{}
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repo) MarkNotificationRead(ctx context.Context, id int64, at time.Time) (domain.Notification, error) {
	if _, err := r.db.ExecContext(ctx, markNotificationReadSQL, at.UTC(), id); err != nil {
		return domain.Notification{}, fmt.Errorf("mark notification read: %w", err)
	}
	n, err := scanNotification(r.db.QueryRowContext(ctx, getNotificationSQL, id))
	if err != nil {
		return domain.Notification{}, notFound(err, "notification")
	}
	return n, nil
}

func (r *Repo) MarkAllNotificationsRead(ctx context.Context, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, markAllNotificationsReadSQL, at.UTC())
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return rowsAffected(res)
}

func (r *Repo) CountUnreadNotifications(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countUnreadNotificationsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

func (r *Repo) DeleteNotification(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, deleteNotificationSQL, id)
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("notification not found")
	}
	return nil
}

func (r *Repo) DeleteNotificationsBefore(ctx context.Context, cutoff time.Time, onlyRead bool) (int64, error) {
	query := deleteNotificationsBeforeSQL
	if onlyRead {
		query = deleteReadNotificationsBeforeSQL
	}
	res, err := r.db.ExecContext(ctx, query, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete notifications: %w", err)
	}
	return rowsAffected(res)
}
