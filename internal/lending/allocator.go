package lending

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// Allocator claims available copies of a book.
type Allocator struct {
	maxAttempts int
}

// NewAllocator returns an allocator that tries at most maxAttempts candidate
// copies per claim.
func NewAllocator(maxAttempts int) *Allocator {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Allocator{maxAttempts: maxAttempts}
}

// Claim moves one available copy of bookID to checked_out and returns it.
// Candidates are tried lowest copy number first; each is claimed with a
// compare-and-set, so a copy taken by a concurrent borrower is skipped.
// It fails with ErrNoCopyAvailable when no candidate is left or the attempt
// budget runs out. On failure no copy has changed.
func (a *Allocator) Claim(ctx context.Context, q sqlx.ExtContext, bookID int64, at time.Time) (*model.Copy, error) {
	attempts := 0
	for attempts < a.maxAttempts {
		candidates, err := store.ListAvailableCopies(ctx, q, bookID, a.maxAttempts-attempts)
		if err != nil {
			return nil, err
		}
		if len(candidates) == 0 {
			break
		}

		for _, c := range candidates {
			attempts++
			ok, err := store.SetCopyStatus(ctx, q, c.ID, model.CopyAvailable, model.CopyCheckedOut, at)
			if err != nil {
				return nil, err
			}
			if ok {
				c.Status = model.CopyCheckedOut
				c.UpdatedAt = at
				return &c, nil
			}
			slog.Debug("copy claimed concurrently", "book", bookID, "copy", c.ID)
		}
	}

	return nil, fmt.Errorf("book %d: %w", bookID, ErrNoCopyAvailable)
}
