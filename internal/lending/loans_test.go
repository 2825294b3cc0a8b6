package lending

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

func TestBorrowOpensLoan(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	cart := &recordingCart{}
	svc, _ := newTestService(t, database, WithCartNotifier(cart))
	book, copies := seedBook(t, database, "Dune", 2)

	res, err := svc.Borrow(ctx, "7", book.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, res.LoanID)
	assert.Equal(t, book.ID, res.BookID)
	assert.Equal(t, copies[0].ID, res.CopyID)
	assert.True(t, res.DueAt.Equal(epoch.Add(config.DefaultLoanPeriod)))

	loan, err := store.GetLoan(ctx, database, res.LoanID)
	require.NoError(t, err)
	require.NotNil(t, loan)
	assert.Equal(t, "7", loan.UserID)
	assert.True(t, loan.Open())
	assert.Equal(t, 0, loan.RenewalCount)
	assert.Equal(t, model.CopyCheckedOut, copyStatus(t, database, copies[0].ID))
	assert.Equal(t, []cartRemoval{{userID: "7", bookID: book.ID}}, cart.removals())
}

func TestBorrowRequiresBorrower(t *testing.T) {
	database := db.NewTestDB(t)
	svc, _ := newTestService(t, database)
	book, _ := seedBook(t, database, "Dune", 1)

	_, err := svc.Borrow(context.Background(), "", book.ID)
	require.ErrorIs(t, err, ErrNoBorrower)
}

func TestFailedBorrowChangesNothing(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	cart := &recordingCart{}
	svc, _ := newTestService(t, database, WithCartNotifier(cart))
	book, copies := seedBook(t, database, "Dune", 2)

	for _, c := range copies {
		_, err := store.SetCopyStatus(ctx, database, c.ID, model.CopyAvailable, model.CopyMaintenance, epoch)
		require.NoError(t, err)
	}
	require.NoError(t, store.AddToCart(ctx, database, "7", book.ID, epoch))

	_, err := svc.Borrow(ctx, "7", book.ID)
	require.ErrorIs(t, err, ErrNoCopyAvailable)

	for _, c := range copies {
		assert.Equal(t, model.CopyMaintenance, copyStatus(t, database, c.ID))
	}
	assert.Empty(t, cart.removals())

	items, err := store.ListCart(ctx, database, "7")
	require.NoError(t, err)
	assert.Len(t, items, 1)

	loans, err := store.ListOpenLoans(ctx, database, "7")
	require.NoError(t, err)
	assert.Empty(t, loans)
}

func TestConcurrentBorrowsNeverShareACopy(t *testing.T) {
	database := newFileDB(t)
	ctx := context.Background()
	svc, _ := newTestService(t, database)

	const copies, extra = 4, 6
	book, _ := seedBook(t, database, "Dune", copies)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		claimed   = map[int64]string{}
		failures  int
		others []error
	)
	for i := range copies + extra {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			res, err := svc.Borrow(ctx, user, book.ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				if prev, ok := claimed[res.CopyID]; ok {
					t.Errorf("copy %d claimed by %s and %s", res.CopyID, prev, user)
				}
				claimed[res.CopyID] = user
			case errors.Is(err, ErrNoCopyAvailable):
				failures++
			default:
				others = append(others, err)
			}
		}(model.BorrowerID(int64(i + 1)))
	}
	wg.Wait()

	require.Empty(t, others)
	assert.Len(t, claimed, copies)
	assert.Equal(t, extra, failures)

	got, err := store.GetBook(ctx, database, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableCopies)
}

func TestReturnRestoresCopy(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	svc, clock := newTestService(t, database)
	book, copies := seedBook(t, database, "Dune", 1)

	res, err := svc.Borrow(ctx, "7", book.ID)
	require.NoError(t, err)

	clock.Advance(3 * 24 * time.Hour)
	loan, err := svc.Return(ctx, "7", copies[0].ID)
	require.NoError(t, err)
	assert.Equal(t, res.LoanID, loan.ID)
	require.NotNil(t, loan.ReturnedAt)

	stored, err := store.GetLoan(ctx, database, res.LoanID)
	require.NoError(t, err)
	require.NotNil(t, stored.ReturnedAt)
	assert.True(t, stored.ReturnedAt.Equal(epoch.Add(3*24*time.Hour)))
	assert.Equal(t, model.CopyAvailable, copyStatus(t, database, copies[0].ID))

	_, err = svc.Return(ctx, "7", copies[0].ID)
	require.ErrorIs(t, err, ErrNoActiveLoan)
}

func TestReturnByOtherBorrowerFails(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	svc, _ := newTestService(t, database)
	book, copies := seedBook(t, database, "Dune", 1)

	_, err := svc.Borrow(ctx, "7", book.ID)
	require.NoError(t, err)

	_, err = svc.ReturnBook(ctx, "8", book.ID)
	require.ErrorIs(t, err, ErrNoActiveLoan)
	assert.Equal(t, model.CopyCheckedOut, copyStatus(t, database, copies[0].ID))
}

func TestReturnOfCopyNotCheckedOutKeepsLoanOpen(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	svc, _ := newTestService(t, database)
	book, copies := seedBook(t, database, "Dune", 1)

	res, err := svc.Borrow(ctx, "7", book.ID)
	require.NoError(t, err)
	_, err = store.SetCopyStatus(ctx, database, copies[0].ID, model.CopyCheckedOut, model.CopyLost, epoch)
	require.NoError(t, err)

	_, err = svc.Return(ctx, "7", copies[0].ID)
	require.ErrorIs(t, err, ErrDataIntegrity)

	loan, err := store.GetLoan(ctx, database, res.LoanID)
	require.NoError(t, err)
	assert.True(t, loan.Open())
	assert.Equal(t, model.CopyLost, copyStatus(t, database, copies[0].ID))
}

func TestRenewUpToLimit(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	svc, clock := newTestService(t, database)
	book, copies := seedBook(t, database, "Dune", 1)
	period := config.DefaultLoanPeriod

	res, err := svc.Borrow(ctx, "7", book.ID)
	require.NoError(t, err)

	for i := 1; i <= config.DefaultMaxRenewals; i++ {
		clock.Advance(24 * time.Hour)
		r, err := svc.Renew(ctx, "7", copies[0].ID)
		require.NoError(t, err)
		assert.Equal(t, i, r.RenewalCount)
		assert.True(t, r.DueAt.Equal(res.DueAt.Add(time.Duration(i)*period)), "renewal %d due %v", i, r.DueAt)
	}

	before, err := store.GetLoan(ctx, database, res.LoanID)
	require.NoError(t, err)

	_, err = svc.Renew(ctx, "7", copies[0].ID)
	require.ErrorIs(t, err, ErrRenewalLimitExceeded)

	after, err := store.GetLoan(ctx, database, res.LoanID)
	require.NoError(t, err)
	assert.Equal(t, before.RenewalCount, after.RenewalCount)
	assert.True(t, before.DueAt.Equal(after.DueAt))

	active, err := svc.ListActiveLoans(ctx, "7")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.False(t, active[0].Renewable)
	assert.Equal(t, "Dune", active[0].Title)
}

func TestRenewBookWithoutLoan(t *testing.T) {
	database := db.NewTestDB(t)
	svc, _ := newTestService(t, database)
	book, _ := seedBook(t, database, "Dune", 1)

	_, err := svc.RenewBook(context.Background(), "7", book.ID)
	require.ErrorIs(t, err, ErrNoActiveLoan)
}

func TestRenewBookUsesEarliestOfSeveralLoans(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	svc, clock := newTestService(t, database)
	book, _ := seedBook(t, database, "Dune", 2)

	first, err := svc.Borrow(ctx, "7", book.ID)
	require.NoError(t, err)
	clock.Advance(time.Hour)
	_, err = svc.Borrow(ctx, "7", book.ID)
	require.NoError(t, err)

	logs := captureLogs(t)
	r, err := svc.RenewBook(ctx, "7", book.ID)
	require.NoError(t, err)
	assert.Equal(t, first.LoanID, r.LoanID)

	// Two copies of one book is a normal state, not a broken invariant.
	_, err = svc.ReturnBook(ctx, "7", book.ID)
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "level=ERROR")
}

func TestConcurrentRenewalsRespectLimit(t *testing.T) {
	database := newFileDB(t)
	ctx := context.Background()
	svc, _ := newTestService(t, database)
	book, copies := seedBook(t, database, "Dune", 1)
	policy := svc.Policy()

	borrowed, err := svc.Borrow(ctx, "7", book.ID)
	require.NoError(t, err)

	const callers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		renewed   int
		limited   int
		others []error
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Renew(ctx, "7", copies[0].ID)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				renewed++
			case errors.Is(err, ErrRenewalLimitExceeded):
				limited++
			default:
				others = append(others, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, others)
	assert.Equal(t, policy.MaxRenewals, renewed)
	assert.Equal(t, callers-policy.MaxRenewals, limited)

	loan, err := store.GetLoan(ctx, database, borrowed.LoanID)
	require.NoError(t, err)
	assert.Equal(t, policy.MaxRenewals, loan.RenewalCount)
	wantDue := borrowed.DueAt.Add(time.Duration(policy.MaxRenewals) * policy.LoanPeriod)
	assert.True(t, loan.DueAt.Equal(wantDue), "due %v, want %v", loan.DueAt, wantDue)
}

func TestSingleCopyHandOver(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	svc, _ := newTestService(t, database)
	book, copies := seedBook(t, database, "Dune", 1)

	first, err := svc.Borrow(ctx, "1", book.ID)
	require.NoError(t, err)

	_, err = svc.Borrow(ctx, "2", book.ID)
	require.ErrorIs(t, err, ErrNoCopyAvailable)

	_, err = svc.ReturnBook(ctx, "1", book.ID)
	require.NoError(t, err)

	second, err := svc.Borrow(ctx, "2", book.ID)
	require.NoError(t, err)
	assert.Equal(t, copies[0].ID, second.CopyID)
	assert.NotEqual(t, first.LoanID, second.LoanID)

	history, err := svc.LoanHistory(ctx, "1")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.False(t, history[0].Open())
}

func TestRetryOnConflict(t *testing.T) {
	ctx := context.Background()

	calls := 0
	err := retryOnConflict(ctx, 5, time.Millisecond, func(context.Context) error {
		calls++
		if calls < 3 {
			return errConflict
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryOnConflict(ctx, 3, time.Millisecond, func(context.Context) error {
		calls++
		return errConflict
	})
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryOnConflict(ctx, 3, time.Millisecond, func(context.Context) error {
		calls++
		return ErrRenewalLimitExceeded
	})
	require.ErrorIs(t, err, ErrRenewalLimitExceeded)
	assert.Equal(t, 1, calls)
}
