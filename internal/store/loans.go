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

const loanColumns = `l.id, l.copy_id, l.book_id, l.user_id, l.borrowed_at, l.due_at,
	l.returned_at, l.renewal_count`

// InsertLoan records a new open loan. A second open loan on the same copy is
// rejected by the database with ErrDuplicate.
func InsertLoan(ctx context.Context, q sqlx.ExecerContext, loan *model.Loan) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO loans (id, copy_id, book_id, user_id, borrowed_at, due_at, renewal_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		loan.ID, loan.CopyID, loan.BookID, loan.UserID,
		loan.BorrowedAt.UTC(), loan.DueAt.UTC(), loan.RenewalCount,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("inserting loan for copy %d: %w", loan.CopyID, ErrDuplicate)
		}
		return fmt.Errorf("inserting loan: %w", err)
	}
	return nil
}

// GetLoan returns a loan by ID, or nil if it does not exist.
func GetLoan(ctx context.Context, q sqlx.QueryerContext, id string) (*model.Loan, error) {
	var l model.Loan
	err := sqlx.GetContext(ctx, q, &l,
		`SELECT `+loanColumns+` FROM loans l WHERE l.id = ?`, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting loan: %w", err)
	}
	return &l, nil
}

// OpenLoansForCopy returns the user's open loans on a copy, earliest first.
// More than one result means the open-loan invariant is broken.
func OpenLoansForCopy(ctx context.Context, q sqlx.QueryerContext, userID string, copyID int64) ([]model.Loan, error) {
	var loans []model.Loan
	err := sqlx.SelectContext(ctx, q, &loans,
		`SELECT `+loanColumns+` FROM loans l
		 WHERE l.user_id = ? AND l.copy_id = ? AND l.returned_at IS NULL
		 ORDER BY l.borrowed_at, l.id`,
		userID, copyID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding open loans for copy: %w", err)
	}
	return loans, nil
}

// OpenLoansForBook returns the user's open loans on any copy of a book,
// earliest first.
func OpenLoansForBook(ctx context.Context, q sqlx.QueryerContext, userID string, bookID int64) ([]model.Loan, error) {
	var loans []model.Loan
	err := sqlx.SelectContext(ctx, q, &loans,
		`SELECT `+loanColumns+` FROM loans l
		 WHERE l.user_id = ? AND l.book_id = ? AND l.returned_at IS NULL
		 ORDER BY l.borrowed_at, l.id`,
		userID, bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("finding open loans for book: %w", err)
	}
	return loans, nil
}

// ListOpenLoans returns all of a user's open loans with book titles,
// soonest due first.
func ListOpenLoans(ctx context.Context, q sqlx.QueryerContext, userID string) ([]model.Loan, error) {
	var loans []model.Loan
	err := sqlx.SelectContext(ctx, q, &loans,
		`SELECT `+loanColumns+`, b.title
		 FROM loans l
		 JOIN books b ON b.id = l.book_id
		 WHERE l.user_id = ? AND l.returned_at IS NULL
		 ORDER BY l.due_at, l.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing open loans: %w", err)
	}
	return loans, nil
}

// ListLoanHistory returns all of a user's loans, newest first.
func ListLoanHistory(ctx context.Context, q sqlx.QueryerContext, userID string) ([]model.Loan, error) {
	var loans []model.Loan
	err := sqlx.SelectContext(ctx, q, &loans,
		`SELECT `+loanColumns+`, b.title
		 FROM loans l
		 JOIN books b ON b.id = l.book_id
		 WHERE l.user_id = ?
		 ORDER BY l.borrowed_at DESC, l.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing loan history: %w", err)
	}
	return loans, nil
}

// RenewLoan sets a new due date and bumps the renewal count, but only if the
// loan is still open and its renewal count is still expectedCount.
func RenewLoan(ctx context.Context, q sqlx.ExecerContext, id string, expectedCount int, dueAt time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE loans SET due_at = ?, renewal_count = renewal_count + 1
		 WHERE id = ? AND returned_at IS NULL AND renewal_count = ?`,
		dueAt.UTC(), id, expectedCount,
	)
	if err != nil {
		return false, fmt.Errorf("renewing loan: %w", err)
	}
	return affectedOne(result)
}

// CloseLoan marks an open loan as returned. It returns false if the loan was
// already closed.
func CloseLoan(ctx context.Context, q sqlx.ExecerContext, id string, at time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE loans SET returned_at = ? WHERE id = ? AND returned_at IS NULL`,
		at.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("closing loan: %w", err)
	}
	return affectedOne(result)
}
