package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hotel_backoffice/internal/domain"
)

// insertIntent writes an outbox row inside the caller's transaction.
func insertIntent(ctx context.Context, tx *sql.Tx, in domain.OutboxIntent) error {
	_, err := tx.ExecContext(ctx, insertIntentSQL,
		in.ID, in.Type, in.Title, in.Message, valStr(in.BookingID), in.Priority, in.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert outbox intent: %w", err)
	}
	return nil
}

func (r *Repo) PendingIntents(ctx context.Context, limit int) ([]domain.OutboxIntent, error) {
	rows, err := r.db.QueryContext(ctx, pendingIntentsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("pending intents: %w", err)
	}
	defer rows.Close()
	var out []domain.OutboxIntent
	for rows.Next() {
		var (
			in      domain.OutboxIntent
			ref     sql.NullString
			lastErr sql.NullString
		)
		if err := rows.Scan(&in.ID, &in.Type, &in.Title, &in.Message, &ref, &in.Priority, &in.Attempts, &lastErr, &in.CreatedAt); err != nil {
			return nil, err
		}
		in.BookingID = ref.String
		in.LastError = lastErr.String
		in.CreatedAt = in.CreatedAt.UTC()
		out = append(out, in)
	}
	return out, rows.Err()
}

func (r *Repo) MarkIntentDispatched(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, markIntentDispatchedSQL, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("mark intent dispatched: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("outbox intent not found")
	}
	return nil
}

func (r *Repo) MarkIntentFailed(ctx context.Context, id string, reason string, dead bool, at time.Time) error {
	var failedAt *time.Time
	if dead {
		failedAt = &at
	}
	res, err := r.db.ExecContext(ctx, markIntentFailedSQL, reason, valTime(failedAt), id)
	if err != nil {
		return fmt.Errorf("mark intent failed: %w", err)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFound("outbox intent not found")
	}
	return nil
}

func (r *Repo) PurgeSettledIntents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, purgeSettledIntentsSQL, cutoff.UTC(), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return rowsAffected(res)
}
