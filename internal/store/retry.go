package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"log/slog"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrUnavailable is returned when storage keeps failing after a retry.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
)

// Retry runs fn and runs it once more if it failed with a transient storage
// error. A second transient failure is reported as ErrUnavailable. fn must
// be safe to repeat: a whole transaction, or a single statement.
func Retry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !IsTransient(err) {
		return err
	}

	slog.Warn("retrying after transient storage error", "error", err)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	err = fn()
	if err != nil && IsTransient(err) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// IsTransient reports whether err is a lock or connection failure that may
// succeed when retried.
func IsTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY conflict.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
	}
	return false
}

// affectedOne reports whether a conditional update matched exactly one row.
func affectedOne(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n == 1, nil
}
