package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"hotel_backoffice/internal/domain"
)

func scanAdmin(s scanner) (domain.Admin, error) {
	var a domain.Admin
	if err := s.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Role, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return domain.Admin{}, err
	}
	a.CreatedAt, a.UpdatedAt = a.CreatedAt.UTC(), a.UpdatedAt.UTC()
	return a, nil
}

func (r *Repo) CreateAdmin(ctx context.Context, a domain.Admin) (domain.Admin, error) {
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, insertAdminSQL, a.Email, a.PasswordHash, a.Name, a.Role, a.IsActive, now, now)
	if err != nil {
		if isDuplicate(err) {
			return domain.Admin{}, domain.Conflict("an admin with this email already exists")
		}
		return domain.Admin{}, fmt.Errorf("insert admin: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Admin{}, fmt.Errorf("insert admin id: %w", err)
	}
	return r.GetAdmin(ctx, id)
}

func (r *Repo) GetAdmin(ctx context.Context, id int64) (domain.Admin, error) {
	a, err := scanAdmin(r.db.QueryRowContext(ctx, getAdminSQL, id))
	if err != nil {
		return domain.Admin{}, notFound(err, "admin")
	}
	return a, nil
}

func (r *Repo) GetActiveAdminByEmail(ctx context.Context, email string) (domain.Admin, error) {
	a, err := scanAdmin(r.db.QueryRowContext(ctx, getActiveAdminByEmailSQL, email))
	if err != nil {
		return domain.Admin{}, notFound(err, "admin")
	}
	return a, nil
}

func (r *Repo) ListActiveAdmins(ctx context.Context) ([]domain.Admin, error) {
	rows, err := r.db.QueryContext(ctx, listActiveAdminsSQL)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()
	out := []domain.Admin{}
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateAdmin(ctx context.Context, current, next domain.Admin) (domain.Admin, error) {
	var n int64
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if domain.DropsSuperAdmin(current, next) {
			supers, err := lockedSuperAdmins(ctx, tx)
			if err != nil {
				return err
			}
			if supers <= 1 {
				return domain.ErrLastSuperAdmin
			}
		}
		res, err := tx.ExecContext(ctx, updateAdminSQL,
			next.Email, next.Name, next.Role, next.IsActive, r.now().UTC(),
			current.ID, current.Email, current.Role, current.IsActive)
		if err != nil {
			if isDuplicate(err) {
				return domain.Conflict("an admin with this email already exists")
			}
			if isDeadlock(err) {
				return domain.Conflict("admin was modified concurrently")
			}
			return fmt.Errorf("update admin: %w", err)
		}
		n, err = rowsAffected(res)
		return err
	})
	if err != nil {
		return domain.Admin{}, err
	}
	if n == 0 {
		// updated_at always changes, so zero rows means the snapshot no longer matches.
		if _, err := r.GetAdmin(ctx, current.ID); err != nil {
			return domain.Admin{}, err
		}
		return domain.Admin{}, domain.Conflict("admin was modified concurrently")
	}
	return r.GetAdmin(ctx, current.ID)
}

// lockedSuperAdmins counts active super_admins while holding their row locks until
// the transaction ends.
func lockedSuperAdmins(ctx context.Context, tx *sql.Tx) (int, error) {
	rows, err := tx.QueryContext(ctx, lockActiveSuperAdminsSQL)
	if err != nil {
		if isDeadlock(err) {
			return 0, domain.Conflict("admin was modified concurrently")
		}
		return 0, fmt.Errorf("lock super admins: %w", err)
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		n++
	}
	return n, rows.Err()
}

func (r *Repo) CountActiveSuperAdmins(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, countActiveSuperAdminsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("count super admins: %w", err)
	}
	return n, nil
}
