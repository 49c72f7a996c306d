package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"hotel_backoffice/internal/domain"
)

const (
	errDuplicateEntry = 1062
	errLockDeadlock   = 1213
)

func valStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func valTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func nullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

// Repo implements every storage port on one *sql.DB.
type Repo struct {
	db  *sql.DB
	now func() time.Time
}

func New(db *sql.DB) *Repo { return &Repo{db: db, now: time.Now} }

type scanner interface {
	Scan(dest ...any) error
}

// isDuplicate reports a unique-key violation.
func isDuplicate(err error) bool {
	var me *gomysql.MySQLError
	return errors.As(err, &me) && me.Number == errDuplicateEntry
}

// isDeadlock reports InnoDB picking this transaction as a deadlock victim.
func isDeadlock(err error) bool {
	var me *gomysql.MySQLError
	return errors.As(err, &me) && me.Number == errLockDeadlock
}

// notFound maps sql.ErrNoRows onto the domain error, wrapping anything else.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFound(what + " not found")
	}
	return fmt.Errorf("%s: %w", what, err)
}

// inTx runs fn in a transaction, committing on nil and rolling back otherwise.
func (r *Repo) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			log.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// rowsAffected returns n or wraps the driver error.
func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
