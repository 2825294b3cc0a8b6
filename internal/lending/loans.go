// Package lending allocates copies to borrowers and runs the loan lifecycle:
// borrow, renew, return, and the reminders derived from open loans.
package lending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

// CartNotifier is told about every successful borrow so the book can leave
// the borrower's cart. It must not block.
type CartNotifier interface {
	Notify(userID string, bookID int64)
}

// Service is the lending engine. It is safe for concurrent use; all
// coordination happens through compare-and-set updates in the store.
type Service struct {
	db     *sqlx.DB
	policy config.Policy
	clock  Clock
	alloc  *Allocator
	cart   CartNotifier

	conflictAttempts  int
	conflictBaseDelay time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// WithCartNotifier sets the collaborator told about successful borrows.
func WithCartNotifier(n CartNotifier) Option {
	return func(s *Service) {
		s.cart = n
	}
}

// WithConflictRetry sets how often a renewal that lost a race is retried
// and the base backoff delay between tries.
func WithConflictRetry(attempts int, baseDelay time.Duration) Option {
	return func(s *Service) {
		s.conflictAttempts = attempts
		s.conflictBaseDelay = baseDelay
	}
}

// NewService creates the lending engine over db.
func NewService(db *sqlx.DB, policy config.Policy, opts ...Option) *Service {
	s := &Service{
		db:                db,
		policy:            policy,
		clock:             SystemClock,
		alloc:             NewAllocator(policy.MaxClaimAttempts),
		conflictAttempts:  defaultConflictAttempts,
		conflictBaseDelay: defaultConflictBaseDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the rules the service enforces.
func (s *Service) Policy() config.Policy {
	return s.policy
}

// BorrowResult describes a new loan.
type BorrowResult struct {
	LoanID string    `json:"loan_id"`
	BookID int64     `json:"book_id"`
	CopyID int64     `json:"copy_id"`
	DueAt  time.Time `json:"due_at"`
}

// RenewResult describes a renewed loan.
type RenewResult struct {
	LoanID       string    `json:"loan_id"`
	CopyID       int64     `json:"copy_id"`
	DueAt        time.Time `json:"due_at"`
	RenewalCount int       `json:"renewal_count"`
}

// ActiveLoan is an open loan as shown to its borrower.
type ActiveLoan struct {
	LoanID       string    `json:"loan_id"`
	BookID       int64     `json:"book_id"`
	Title        string    `json:"title"`
	CopyID       int64     `json:"copy_id"`
	DueAt        time.Time `json:"due_at"`
	RenewalCount int       `json:"renewal_count"`
	Renewable    bool      `json:"renewable"`
}

// Borrow claims a copy of bookID for userID and opens a loan due one loan
// period from now. The claim and the loan insert commit together. The cart
// notifier runs only after the commit, and its outcome does not affect the
// loan.
func (s *Service) Borrow(ctx context.Context, userID string, bookID int64) (*BorrowResult, error) {
	if userID == "" {
		return nil, ErrNoBorrower
	}

	var loan *model.Loan
	err := store.Retry(ctx, func() error {
		var err error
		loan, err = s.borrowOnce(ctx, userID, bookID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("borrowing book %d: %w", bookID, err)
	}

	slog.Info("loan created", "loan", loan.ID, "user", userID,
		"book", bookID, "copy", loan.CopyID, "due", loan.DueAt)

	if s.cart != nil {
		s.cart.Notify(userID, bookID)
	}

	return &BorrowResult{
		LoanID: loan.ID,
		BookID: bookID,
		CopyID: loan.CopyID,
		DueAt:  loan.DueAt,
	}, nil
}

func (s *Service) borrowOnce(ctx context.Context, userID string, bookID int64) (*model.Loan, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := s.clock.Now().UTC()

	c, err := s.alloc.Claim(ctx, tx, bookID, now)
	if err != nil {
		return nil, err
	}

	loan := &model.Loan{
		ID:         uuid.NewString(),
		CopyID:     c.ID,
		BookID:     bookID,
		UserID:     userID,
		BorrowedAt: now,
		DueAt:      now.Add(s.policy.LoanPeriod),
	}
	if err := store.InsertLoan(ctx, tx, loan); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			slog.Error("open loan found on available copy", "copy", c.ID, "error", err)
			return nil, fmt.Errorf("%w: copy %d was available but has an open loan", ErrDataIntegrity, c.ID)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing loan: %w", err)
	}
	return loan, nil
}

// Renew extends the borrower's open loan on copyID by one loan period,
// counted from the current due date.
func (s *Service) Renew(ctx context.Context, userID string, copyID int64) (*RenewResult, error) {
	res, err := s.renew(ctx, userID, func(ctx context.Context) ([]model.Loan, error) {
		return store.OpenLoansForCopy(ctx, s.db, userID, copyID)
	})
	if err != nil {
		return nil, fmt.Errorf("renewing copy %d: %w", copyID, err)
	}
	return res, nil
}

// RenewBook is Renew for the borrower's open loan on any copy of bookID.
func (s *Service) RenewBook(ctx context.Context, userID string, bookID int64) (*RenewResult, error) {
	res, err := s.renew(ctx, userID, func(ctx context.Context) ([]model.Loan, error) {
		return store.OpenLoansForBook(ctx, s.db, userID, bookID)
	})
	if err != nil {
		return nil, fmt.Errorf("renewing book %d: %w", bookID, err)
	}
	return res, nil
}

type loanFinder func(ctx context.Context) ([]model.Loan, error)

func (s *Service) renew(ctx context.Context, userID string, find loanFinder) (*RenewResult, error) {
	if userID == "" {
		return nil, ErrNoBorrower
	}

	var res *RenewResult
	err := retryOnConflict(ctx, s.conflictAttempts, s.conflictBaseDelay, func(ctx context.Context) error {
		loan, err := s.openLoan(ctx, find)
		if err != nil {
			return err
		}

		if loan.RenewalCount >= s.policy.MaxRenewals {
			return fmt.Errorf("loan %s renewed %d of %d times: %w",
				loan.ID, loan.RenewalCount, s.policy.MaxRenewals, ErrRenewalLimitExceeded)
		}

		due := loan.DueAt.Add(s.policy.LoanPeriod)
		var ok bool
		err = store.Retry(ctx, func() error {
			var err error
			ok, err = store.RenewLoan(ctx, s.db, loan.ID, loan.RenewalCount, due)
			return err
		})
		if err != nil {
			return err
		}
		if !ok {
			return errConflict
		}

		res = &RenewResult{
			LoanID:       loan.ID,
			CopyID:       loan.CopyID,
			DueAt:        due,
			RenewalCount: loan.RenewalCount + 1,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("loan renewed", "loan", res.LoanID, "user", userID,
		"due", res.DueAt, "renewals", res.RenewalCount)
	return res, nil
}

// Return closes the borrower's open loan on copyID and puts the copy back
// into circulation. Returning the same loan twice fails with ErrNoActiveLoan.
func (s *Service) Return(ctx context.Context, userID string, copyID int64) (*model.Loan, error) {
	loan, err := s.closeLoan(ctx, userID, func(ctx context.Context) ([]model.Loan, error) {
		return store.OpenLoansForCopy(ctx, s.db, userID, copyID)
	})
	if err != nil {
		return nil, fmt.Errorf("returning copy %d: %w", copyID, err)
	}
	return loan, nil
}

// ReturnBook is Return for the borrower's open loan on any copy of bookID.
func (s *Service) ReturnBook(ctx context.Context, userID string, bookID int64) (*model.Loan, error) {
	loan, err := s.closeLoan(ctx, userID, func(ctx context.Context) ([]model.Loan, error) {
		return store.OpenLoansForBook(ctx, s.db, userID, bookID)
	})
	if err != nil {
		return nil, fmt.Errorf("returning book %d: %w", bookID, err)
	}
	return loan, nil
}

func (s *Service) closeLoan(ctx context.Context, userID string, find loanFinder) (*model.Loan, error) {
	if userID == "" {
		return nil, ErrNoBorrower
	}

	loan, err := s.openLoan(ctx, find)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	err = store.Retry(ctx, func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		defer tx.Rollback()

		ok, err := store.CloseLoan(ctx, tx, loan.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			// A concurrent return got there first.
			return ErrNoActiveLoan
		}

		ok, err = store.SetCopyStatus(ctx, tx, loan.CopyID, model.CopyCheckedOut, model.CopyAvailable, now)
		if err != nil {
			return err
		}
		if !ok {
			slog.Error("returned copy was not checked out", "loan", loan.ID, "copy", loan.CopyID)
			return fmt.Errorf("%w: copy %d of open loan %s is not checked out", ErrDataIntegrity, loan.CopyID, loan.ID)
		}

		return tx.Commit()
	})
	if err != nil {
		return nil, err
	}

	loan.ReturnedAt = &now
	slog.Info("loan closed", "loan", loan.ID, "user", userID, "copy", loan.CopyID)
	return loan, nil
}

// openLoan returns the earliest open loan find reports. A borrower may hold
// several copies of one book; several open loans on the same copy break an
// invariant and are logged as an integrity violation.
func (s *Service) openLoan(ctx context.Context, find loanFinder) (*model.Loan, error) {
	var loans []model.Loan
	err := store.Retry(ctx, func() error {
		var err error
		loans, err = find(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return nil, ErrNoActiveLoan
	}

	first := loans[0]
	var dup []string
	for _, l := range loans[1:] {
		if l.CopyID == first.CopyID {
			dup = append(dup, l.ID)
		}
	}
	if len(dup) > 0 {
		slog.Error("multiple open loans on one copy", "error", ErrDataIntegrity,
			"user", first.UserID, "copy", first.CopyID, "loan", first.ID, "duplicates", dup)
	}

	return &first, nil
}

// ListActiveLoans returns the borrower's open loans, soonest due first.
func (s *Service) ListActiveLoans(ctx context.Context, userID string) ([]ActiveLoan, error) {
	loans, err := s.openLoans(ctx, userID)
	if err != nil {
		return nil, err
	}

	active := make([]ActiveLoan, 0, len(loans))
	for _, l := range loans {
		active = append(active, ActiveLoan{
			LoanID:       l.ID,
			BookID:       l.BookID,
			Title:        l.Title,
			CopyID:       l.CopyID,
			DueAt:        l.DueAt,
			RenewalCount: l.RenewalCount,
			Renewable:    l.RenewalCount < s.policy.MaxRenewals,
		})
	}
	return active, nil
}

// LoanHistory returns every loan the borrower ever had, newest first.
func (s *Service) LoanHistory(ctx context.Context, userID string) ([]model.Loan, error) {
	if userID == "" {
		return nil, ErrNoBorrower
	}

	var loans []model.Loan
	err := store.Retry(ctx, func() error {
		var err error
		loans, err = store.ListLoanHistory(ctx, s.db, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing loan history: %w", err)
	}
	return loans, nil
}

func (s *Service) openLoans(ctx context.Context, userID string) ([]model.Loan, error) {
	if userID == "" {
		return nil, ErrNoBorrower
	}

	var loans []model.Loan
	err := store.Retry(ctx, func() error {
		var err error
		loans, err = store.ListOpenLoans(ctx, s.db, userID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing open loans: %w", err)
	}
	return loans, nil
}
