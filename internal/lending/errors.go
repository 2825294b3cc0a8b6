package lending

import (
	"errors"

	"github.com/erazemk/izposoja/internal/store"
)

// Errors returned by the engine. Callers match them with errors.Is.
var (
	// ErrNoCopyAvailable means no copy of the book could be claimed.
	ErrNoCopyAvailable = errors.New("no copy available")

	// ErrRenewalLimitExceeded means the loan has used all its renewals.
	ErrRenewalLimitExceeded = errors.New("renewal limit exceeded")

	// ErrNoActiveLoan means the borrower has no open loan for the copy or book.
	ErrNoActiveLoan = errors.New("no active loan")

	// ErrDataIntegrity means stored state breaks a lending invariant, such as
	// two open loans on one copy. It is logged and never repaired silently.
	ErrDataIntegrity = errors.New("data integrity violation")

	// ErrUnavailable means storage kept failing after a retry.
	ErrUnavailable = store.ErrUnavailable

	// ErrNoBorrower means the request carried no borrower identity.
	ErrNoBorrower = errors.New("borrower identity required")

	// ErrBookNotFound means the book does not exist.
	ErrBookNotFound = errors.New("book not found")

	// ErrAlreadyReserved means the borrower already holds an active
	// reservation for the book.
	ErrAlreadyReserved = errors.New("book already reserved")

	// ErrNoActiveReservation means the reservation is missing, belongs to
	// someone else, or is no longer active.
	ErrNoActiveReservation = errors.New("no active reservation")

	// errConflict marks a lost compare-and-set on a loan; it is retried.
	errConflict = errors.New("concurrent update")
)
