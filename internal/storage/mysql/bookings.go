package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"hotel_backoffice/internal/domain"
)

func scanBooking(s scanner) (domain.Booking, error) {
	var b domain.Booking
	err := s.Scan(&b.ID, &b.Reference, &b.PackageID, &b.RoomNumber, &b.CustomerName, &b.CustomerEmail,
		&b.CustomerPhone, &b.CheckIn, &b.CheckOut, &b.TotalPrice, &b.Status, &b.AdminNotes,
		&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return domain.Booking{}, err
	}
	b.CheckIn, b.CheckOut = domain.DateOnly(b.CheckIn), domain.DateOnly(b.CheckOut)
	b.CreatedAt, b.UpdatedAt = b.CreatedAt.UTC(), b.UpdatedAt.UTC()
	return b, nil
}

func scanBookings(rows *sql.Rows) ([]domain.Booking, error) {
	defer rows.Close()
	out := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func dateArg(t time.Time) string { return t.UTC().Format(domain.DateLayout) }

// InsertBooking locks the room row, re-checks overlap and writes the booking and its
// outbox intent in one transaction.
func (r *Repo) InsertBooking(ctx context.Context, b domain.Booking, intent domain.OutboxIntent) (domain.Booking, error) {
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var room int
		if err := tx.QueryRowContext(ctx, lockRoomSQL, b.RoomNumber).Scan(&room); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.Validation("roomNumber must be between 1 and 5")
			}
			return fmt.Errorf("lock room: %w", err)
		}
		var overlap bool
		if err := tx.QueryRowContext(ctx, overlapSQL, b.RoomNumber, dateArg(b.CheckOut), dateArg(b.CheckIn), 0).Scan(&overlap); err != nil {
			return fmt.Errorf("overlap check: %w", err)
		}
		if overlap {
			return domain.Conflict("room is already booked for the selected dates")
		}
		res, err := tx.ExecContext(ctx, insertBookingSQL,
			b.Reference, b.PackageID, b.RoomNumber, b.CustomerName, b.CustomerEmail, b.CustomerPhone,
			dateArg(b.CheckIn), dateArg(b.CheckOut), b.TotalPrice, b.Status, b.AdminNotes,
			b.CreatedAt.UTC(), b.UpdatedAt.UTC())
		if err != nil {
			if isDuplicate(err) {
				return domain.Conflict("booking reference already exists")
			}
			return fmt.Errorf("insert booking: %w", err)
		}
		if b.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("insert booking id: %w", err)
		}
		return insertIntent(ctx, tx, intent)
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *Repo) GetBooking(ctx context.Context, ref domain.BookingRef) (domain.Booking, error) {
	var row *sql.Row
	if ref.Reference != "" {
		row = r.db.QueryRowContext(ctx, getBookingByRefSQL, ref.Reference)
	} else {
		row = r.db.QueryRowContext(ctx, getBookingByIDSQL, ref.ID)
	}
	b, err := scanBooking(row)
	if err != nil {
		return domain.Booking{}, notFound(err, "booking")
	}
	return b, nil
}

func (r *Repo) UpdateBooking(ctx context.Context, b domain.Booking, expected domain.BookingStatus, intent *domain.OutboxIntent) (domain.Booking, error) {
	var out domain.Booking
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, updateBookingSQL, b.Status, b.AdminNotes, b.UpdatedAt.UTC(), b.ID, expected)
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		cur, err := scanBooking(tx.QueryRowContext(ctx, getBookingByIDSQL, b.ID))
		if err != nil {
			return notFound(err, "booking")
		}
		// Zero rows with an unchanged row is a no-op write; anything else moved underneath us.
		if n == 0 && (cur.Status != b.Status || cur.AdminNotes != b.AdminNotes) {
			return domain.Conflict("booking was modified concurrently")
		}
		if intent != nil {
			if err := insertIntent(ctx, tx, *intent); err != nil {
				return err
			}
		}
		out = cur
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return out, nil
}

func (r *Repo) DeleteBooking(ctx context.Context, id int64, intent domain.OutboxIntent) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, deleteBookingSQL, id)
		if err != nil {
			return fmt.Errorf("delete booking: %w", err)
		}
		n, err := rowsAffected(res)
		if err != nil {
			return err
		}
		if n == 0 {
			return domain.NotFound("booking not found")
		}
		return insertIntent(ctx, tx, intent)
	})
}

func (r *Repo) ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if f.PackageID != nil {
		rows, err = r.db.QueryContext(ctx, listPackageBookingsSQL, *f.PackageID, dateArg(f.Today))
	} else {
		rows, err = r.db.QueryContext(ctx, listBookingsSQL)
	}
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return scanBookings(rows)
}

func (r *Repo) BookedRooms(ctx context.Context, stay domain.Stay) ([]int, error) {
	rows, err := r.db.QueryContext(ctx, bookedRoomsSQL, dateArg(stay.CheckOut), dateArg(stay.CheckIn))
	if err != nil {
		return nil, fmt.Errorf("booked rooms: %w", err)
	}
	defer rows.Close()
	var out []int
	for rows.Next() {
		var n int
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *Repo) HasOverlap(ctx context.Context, room int, stay domain.Stay, excludeID int64) (bool, error) {
	var overlap bool
	err := r.db.QueryRowContext(ctx, overlapSQL, room, dateArg(stay.CheckOut), dateArg(stay.CheckIn), excludeID).Scan(&overlap)
	if err != nil {
		return false, fmt.Errorf("overlap check: %w", err)
	}
	return overlap, nil
}

func (r *Repo) ListBlockingBetween(ctx context.Context, from, to time.Time) ([]domain.Booking, error) {
	rows, err := r.db.QueryContext(ctx, listBlockingBetweenSQL, dateArg(from), dateArg(to))
	if err != nil {
		return nil, fmt.Errorf("list blocking bookings: %w", err)
	}
	return scanBookings(rows)
}
