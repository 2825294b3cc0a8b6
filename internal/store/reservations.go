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

const reservationColumns = `id, user_id, book_id, reserved_at, status, fulfilled_at, canceled_at`

// CreateReservation records an active reservation. A user can hold only one
// active reservation per book; a second one fails with ErrDuplicate.
func CreateReservation(ctx context.Context, q sqlx.ExtContext, userID string, bookID int64, at time.Time) (*model.Reservation, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO reservations (user_id, book_id, reserved_at, status) VALUES (?, ?, ?, ?)`,
		userID, bookID, at.UTC(), string(model.ReservationActive),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("creating reservation: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("creating reservation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting reservation id: %w", err)
	}

	return GetReservation(ctx, q, id)
}

// GetReservation returns a reservation by ID, or nil if it does not exist.
func GetReservation(ctx context.Context, q sqlx.QueryerContext, id int64) (*model.Reservation, error) {
	var r model.Reservation
	err := sqlx.GetContext(ctx, q, &r,
		`SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting reservation: %w", err)
	}
	return &r, nil
}

// ListReservations returns a user's reservations, newest first.
func ListReservations(ctx context.Context, q sqlx.QueryerContext, userID string) ([]model.Reservation, error) {
	var rs []model.Reservation
	err := sqlx.SelectContext(ctx, q, &rs,
		`SELECT `+reservationColumns+` FROM reservations
		 WHERE user_id = ? ORDER BY reserved_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}
	return rs, nil
}

// CancelReservation moves the user's active reservation to canceled.
// It returns false if the reservation is not the user's or is not active.
func CancelReservation(ctx context.Context, q sqlx.ExecerContext, id int64, userID string, at time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE reservations SET status = ?, canceled_at = ?
		 WHERE id = ? AND user_id = ? AND status = ?`,
		string(model.ReservationCanceled), at.UTC(), id, userID, string(model.ReservationActive),
	)
	if err != nil {
		return false, fmt.Errorf("canceling reservation: %w", err)
	}
	return affectedOne(result)
}

// FulfillReservation moves an active reservation to fulfilled.
func FulfillReservation(ctx context.Context, q sqlx.ExecerContext, id int64, at time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE reservations SET status = ?, fulfilled_at = ?
		 WHERE id = ? AND status = ?`,
		string(model.ReservationFulfilled), at.UTC(), id, string(model.ReservationActive),
	)
	if err != nil {
		return false, fmt.Errorf("fulfilling reservation: %w", err)
	}
	return affectedOne(result)
}

// ExpireReservations cancels active reservations made before cutoff and
// returns how many were canceled.
func ExpireReservations(ctx context.Context, q sqlx.ExecerContext, cutoff, at time.Time) (int64, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE reservations SET status = ?, canceled_at = ?
		 WHERE status = ? AND reserved_at < ?`,
		string(model.ReservationCanceled), at.UTC(), string(model.ReservationActive), cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("expiring reservations: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reading rows affected: %w", err)
	}
	return n, nil
}
