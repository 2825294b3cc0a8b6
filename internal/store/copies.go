package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
)

const copyColumns = `id, book_id, copy_number, status, updated_at`

// CreateCopy adds a physical copy of a book in the available state.
func CreateCopy(ctx context.Context, q sqlx.ExtContext, bookID int64, copyNumber int) (*model.Copy, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO copies (book_id, copy_number) VALUES (?, ?)`,
		bookID, copyNumber,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("creating copy %d of book %d: %w", copyNumber, bookID, ErrDuplicate)
		}
		return nil, fmt.Errorf("creating copy: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting copy id: %w", err)
	}

	return GetCopy(ctx, q, id)
}

// GetCopy returns a copy by ID, or nil if it does not exist.
func GetCopy(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Copy, error) {
	var c model.Copy
	err := sqlx.GetContext(ctx, q, &c,
		`SELECT `+copyColumns+` FROM copies WHERE id = ?`, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting copy: %w", err)
	}
	return &c, nil
}

// ListAvailableCopies returns up to limit available copies of a book, lowest
// copy number first. A limit of zero or less returns all of them.
func ListAvailableCopies(ctx context.Context, q sqlx.QueryerContext, bookID int64, limit int) ([]model.Copy, error) {
	if limit <= 0 {
		limit = -1
	}

	var copies []model.Copy
	err := sqlx.SelectContext(ctx, q, &copies,
		`SELECT `+copyColumns+` FROM copies
		 WHERE book_id = ? AND status = ?
		 ORDER BY copy_number, id
		 LIMIT ?`,
		bookID, string(model.CopyAvailable), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing available copies: %w", err)
	}
	return copies, nil
}

// ListCopies returns every copy of a book.
func ListCopies(ctx context.Context, q sqlx.QueryerContext, bookID int64) ([]model.Copy, error) {
	var copies []model.Copy
	err := sqlx.SelectContext(ctx, q, &copies,
		`SELECT `+copyColumns+` FROM copies WHERE book_id = ? ORDER BY copy_number, id`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing copies: %w", err)
	}
	return copies, nil
}

// SetCopyStatus moves a copy from expected to next in a single conditional
// update. It returns false, without changing anything, when the copy is
// missing or its status is not expected.
func SetCopyStatus(ctx context.Context, q sqlx.ExecerContext, id int64, expected, next model.CopyStatus, at time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE copies SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(next), at.UTC(), id, string(expected),
	)
	if err != nil {
		return false, fmt.Errorf("setting copy status: %w", err)
	}
	return affectedOne(result)
}
