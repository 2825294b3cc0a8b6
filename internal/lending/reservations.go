package lending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Reserve records the borrower's intent to get a copy of bookID. Reserving
// does not hold a copy; it is fulfilled or canceled explicitly.
func (s *Service) Reserve(ctx context.Context, userID string, bookID int64) (*model.Reservation, error) {
	if userID == "" {
		return nil, ErrNoBorrower
	}

	var r *model.Reservation
	err := store.Retry(ctx, func() error {
		book, err := store.GetBook(ctx, s.db, bookID)
		if err != nil {
			return err
		}
		if book == nil {
			return ErrBookNotFound
		}

		r, err = store.CreateReservation(ctx, s.db, userID, bookID, s.clock.Now())
		if errors.Is(err, store.ErrDuplicate) {
			return ErrAlreadyReserved
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reserving book %d: %w", bookID, err)
	}

	slog.Info("reservation created", "reservation", r.ID, "user", userID, "book", bookID)
	return r, nil
}

// CancelReservation cancels one of the borrower's active reservations.
func (s *Service) CancelReservation(ctx context.Context, userID string, id int64) error {
	if userID == "" {
		return ErrNoBorrower
	}

	var ok bool
	err := store.Retry(ctx, func() error {
		var err error
		ok, err = store.CancelReservation(ctx, s.db, id, userID, s.clock.Now())
		return err
	})
	if err != nil {
		return fmt.Errorf("canceling reservation %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("canceling reservation %d: %w", id, ErrNoActiveReservation)
	}

	slog.Info("reservation canceled", "reservation", id, "user", userID)
	return nil
}

// FulfillReservation marks an active reservation as fulfilled.
func (s *Service) FulfillReservation(ctx context.Context, id int64) error {
	var ok bool
	err := store.Retry(ctx, func() error {
		var err error
		ok, err = store.FulfillReservation(ctx, s.db, id, s.clock.Now())
		return err
	})
	if err != nil {
		return fmt.Errorf("fulfilling reservation %d: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("fulfilling reservation %d: %w", id, ErrNoActiveReservation)
	}

	slog.Info("reservation fulfilled", "reservation", id)
	return nil
}

// ListReservations returns the borrower's reservations, newest first.
func (s *Service) ListReservations(ctx context.Context, userID string) ([]model.Reservation, error) {
	if userID == "" {
		return nil, ErrNoBorrower
	}

	var rs []model.Reservation
	err := store.Retry(ctx, func() error {
		var err error
		rs, err = store.ListReservations(ctx, s.db, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing reservations: %w", err)
	}
	return rs, nil
}

// ExpireReservations cancels active reservations older than olderThan. A
// non-positive olderThan uses the policy's reservation TTL.
func (s *Service) ExpireReservations(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		olderThan = s.policy.ReservationTTL
	}

	now := s.clock.Now()
	var n int64
	err := store.Retry(ctx, func() error {
		var err error
		n, err = store.ExpireReservations(ctx, s.db, now.Add(-olderThan), now)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("expiring reservations: %w", err)
	}

	if n > 0 {
		slog.Info("reservations expired", "count", n)
	}
	return n, nil
}
