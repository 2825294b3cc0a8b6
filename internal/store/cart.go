package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
)

// AddToCart puts a book in a user's cart. Adding it twice is a no-op.
func AddToCart(ctx context.Context, q sqlx.ExecerContext, userID string, bookID int64, at time.Time) error {
	_, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO cart_items (user_id, book_id, added_at) VALUES (?, ?, ?)`,
		userID, bookID, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("adding to cart: %w", err)
	}
	return nil
}

// RemoveFromCart drops a book from a user's cart. Removing a book that is not
// in the cart is a no-op.
func RemoveFromCart(ctx context.Context, q sqlx.ExecerContext, userID string, bookID int64) error {
	_, err := q.ExecContext(ctx,
		`DELETE FROM cart_items WHERE user_id = ? AND book_id = ?`,
		userID, bookID,
	)
	if err != nil {
		return fmt.Errorf("removing from cart: %w", err)
	}
	return nil
}

// ListCart returns the books in a user's cart, oldest first.
func ListCart(ctx context.Context, q sqlx.QueryerContext, userID string) ([]model.CartItem, error) {
	var items []model.CartItem
	err := sqlx.SelectContext(ctx, q, &items,
		`SELECT ci.user_id, ci.book_id, ci.added_at, b.title
		 FROM cart_items ci
		 JOIN books b ON b.id = ci.book_id
		 WHERE ci.user_id = ?
		 ORDER BY ci.added_at, ci.book_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing cart: %w", err)
	}
	return items, nil
}
