package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
)

// CreateBook inserts a book record.
func CreateBook(ctx context.Context, q sqlx.ExtContext, title, isbn string) (*model.Book, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO books (title, isbn) VALUES (?, ?)`,
		title, isbn,
	)
	if err != nil {
		return nil, fmt.Errorf("creating book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting book id: %w", err)
	}

	return GetBook(ctx, q, id)
}

// GetBook returns a book by ID with its copy counts.
func GetBook(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Book, error) {
	var b model.Book
	err := sqlx.GetContext(ctx, q, &b,
		`SELECT b.id, b.title, COALESCE(b.isbn, '') AS isbn, b.created_at,
		        (SELECT COUNT(*) FROM copies c WHERE c.book_id = b.id AND c.status = 'available') AS available_copies,
		        (SELECT COUNT(*) FROM copies c WHERE c.book_id = b.id) AS total_copies
		 FROM books b WHERE b.id = ?`, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting book: %w", err)
	}
	return &b, nil
}
